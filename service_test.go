package taskvault

import (
	"context"
	"fmt"
	"os"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/taskvault/model/task"
	"github.com/viant/taskvault/model/types"
)

// echoIntegration records executions and optionally fails each task once.
type echoIntegration struct {
	name      string
	proposals []*task.Proposal
	failOnce  map[string]error
	executed  []string
}

func (e *echoIntegration) Name() string { return e.name }

func (e *echoIntegration) Poll(ctx context.Context) ([]*task.Proposal, error) {
	ret := e.proposals
	e.proposals = nil
	return ret, nil
}

func (e *echoIntegration) Execute(ctx context.Context, t *task.Task) error {
	e.executed = append(e.executed, t.ID)
	if err, ok := e.failOnce[t.ID]; ok {
		delete(e.failOnce, t.ID)
		return err
	}
	return nil
}

func TestService_EndToEnd(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "taskvault-test")
	if err != nil {
		t.Fatalf("failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	integration := &echoIntegration{name: "exec", failOnce: map[string]error{}}
	service := New(
		WithConfig(&Config{
			Vault:   VaultConfig{URL: tempDir, Scaffold: true},
			Watcher: WatcherConfig{PollingIntervalMs: 3600000},
		}),
		WithIntegrations(integration),
	)

	runtime := service.Runtime()
	assert.NoError(t, runtime.Start(ctx))
	defer runtime.Shutdown()

	// the scaffolded layout validates clean
	ok, problems := runtime.Validator().Validate(ctx)
	assert.True(t, ok, "scaffolded vault should validate: %v", problems)

	engine := runtime.Engine()

	// default policy document: amounts over 100 park for approval
	small, err := engine.Submit(ctx, &task.Proposal{Integration: "exec", Payload: map[string]interface{}{"amount": 50.0}})
	assert.NoError(t, err)
	assert.True(t, fileExists(path.Join(tempDir, "Approved", small.ID+".json")))

	large, err := engine.Submit(ctx, &task.Proposal{Integration: "exec", Payload: map[string]interface{}{"amount": 500.0}})
	assert.NoError(t, err)
	assert.True(t, fileExists(path.Join(tempDir, "Pending_Approval", large.ID+".json")))

	// approve and execute both
	_, err = engine.Decide(ctx, large.ID, true, "alice", "budget cleared")
	assert.NoError(t, err)
	for _, id := range []string{small.ID, large.ID} {
		executed, err := engine.Execute(ctx, id)
		assert.NoError(t, err)
		assert.Equal(t, task.StateDone, executed.State)
		assert.True(t, fileExists(path.Join(tempDir, "Done", id+".json")))
	}

	// an audit trail file appeared under Logs
	entries, err := os.ReadDir(path.Join(tempDir, "Logs"))
	assert.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestService_OfflineReplay(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "taskvault-test")
	if err != nil {
		t.Fatalf("failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	integration := &echoIntegration{name: "exec", failOnce: map[string]error{}}
	service := New(
		WithConfig(&Config{
			Vault:   VaultConfig{URL: tempDir, Scaffold: true},
			Watcher: WatcherConfig{PollingIntervalMs: 3600000},
		}),
		WithIntegrations(integration),
	)
	runtime := service.Runtime()
	assert.NoError(t, runtime.Start(ctx))
	defer runtime.Shutdown()

	engine := runtime.Engine()
	submitted, err := engine.Submit(ctx, &task.Proposal{Integration: "exec", Payload: map[string]interface{}{"amount": 1.0}})
	assert.NoError(t, err)

	// downstream is briefly unreachable
	integration.failOnce[submitted.ID] = types.NewTransientError(fmt.Errorf("connection refused"))
	failed, err := engine.Execute(ctx, submitted.ID)
	assert.NoError(t, err)
	assert.Equal(t, task.StateFailed, failed.State)

	// the retry operation is durable on disk
	assert.True(t, fileExists(path.Join(tempDir, "Queues", "exec.queue")))

	// the backlog replays once the outage clears and the task reconciles
	backlog := service.queues.Queue("exec")
	op := backlog.Dequeue(ctx)
	if !assert.NotNil(t, op) {
		return
	}
	assert.NoError(t, integration.Execute(ctx, &task.Task{ID: op.TaskID, Integration: "exec", Payload: op.Payload}))
	reconciled, err := engine.Reconcile(ctx, op.TaskID)
	assert.NoError(t, err)
	assert.Equal(t, task.StateDone, reconciled.State)
	assert.True(t, reconciled.Result.Replayed)
}

func TestService_StartFailsOnInvalidVault(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "taskvault-test")
	if err != nil {
		t.Fatalf("failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	// no scaffold: the empty directory misses every required folder
	service := New(WithVaultURL(tempDir))
	err = service.Runtime().Start(context.Background())
	assert.Error(t, err)
}

func TestService_Secrets(t *testing.T) {
	service := New()
	secrets := service.Secrets("gmail")
	assert.NotNil(t, secrets)
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		description string
		config      *Config
		shouldError bool
	}{
		{
			description: "defaults are valid",
			config:      DefaultConfig(),
		},
		{
			description: "empty vault URL",
			config:      &Config{Watcher: WatcherConfig{PollingIntervalMs: 1000}},
			shouldError: true,
		},
		{
			description: "non-positive polling interval",
			config:      &Config{Vault: VaultConfig{URL: "/tmp/v"}},
			shouldError: true,
		},
	}
	for _, testCase := range testCases {
		err := testCase.config.Validate()
		if testCase.shouldError {
			assert.Error(t, err, testCase.description)
			continue
		}
		assert.NoError(t, err, testCase.description)
	}
	assert.Equal(t, 10*time.Second, DefaultConfig().Watcher.PollingInterval())
}

func fileExists(location string) bool {
	_, err := os.Stat(location)
	return err == nil
}
