package watcher

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/taskvault/extension"
	"github.com/viant/taskvault/model/task"
	"github.com/viant/taskvault/model/types"
	"github.com/viant/taskvault/policy"
	"github.com/viant/taskvault/policy/rule"
	"github.com/viant/taskvault/service/engine"
	"github.com/viant/taskvault/service/queue"
	qmemory "github.com/viant/taskvault/service/queue/memory"
	smemory "github.com/viant/taskvault/service/store/memory"
)

// scriptedIntegration serves queued proposals and scripted execution
// failures.
type scriptedIntegration struct {
	name      string
	proposals []*task.Proposal
	failures  map[string]error
	executed  []string
}

func (s *scriptedIntegration) Name() string { return s.name }

func (s *scriptedIntegration) Poll(ctx context.Context) ([]*task.Proposal, error) {
	ret := s.proposals
	s.proposals = nil
	return ret, nil
}

func (s *scriptedIntegration) Execute(ctx context.Context, t *task.Task) error {
	s.executed = append(s.executed, t.ID)
	return s.failures[t.ID]
}

type singleQueueProvider struct {
	backlog queue.Service
}

func (p *singleQueueProvider) Queue(integration string) queue.Service { return p.backlog }

func newTestWatcher(integration *scriptedIntegration, approvalPolicy *policy.Policy) (*Service, *smemory.Service, queue.Service) {
	taskStore := smemory.New()
	backlog := qmemory.New()
	integrations := extension.NewIntegrations()
	integrations.Register(integration)
	eng := engine.New(taskStore, approvalPolicy, integrations, &singleQueueProvider{backlog: backlog}, nil)
	return New(integration, eng, taskStore, backlog, DefaultConfig()), taskStore, backlog
}

func TestService_RunCycle(t *testing.T) {
	ctx := context.Background()
	integration := &scriptedIntegration{
		name: "exec",
		proposals: []*task.Proposal{
			{ID: "small", Integration: "exec", Payload: map[string]interface{}{"amount": 10.0}},
			{ID: "large", Integration: "exec", Payload: map[string]interface{}{"amount": 5000.0}},
		},
		failures: map[string]error{},
	}
	approvalPolicy := &policy.Policy{
		Mode:  policy.ModeAuto,
		Rules: []*rule.Rule{{Field: "amount", Operator: ">", Value: 100.0}},
	}
	watcher, taskStore, _ := newTestWatcher(integration, approvalPolicy)

	watcher.RunCycle(ctx)

	// the small proposal was auto-approved and executed within the cycle
	small, err := taskStore.Read(ctx, "small")
	assert.NoError(t, err)
	assert.Equal(t, task.StateDone, small.State)
	assert.Equal(t, []string{"small"}, integration.executed)

	// the large one parked for approval, untouched by execution
	large, err := taskStore.Read(ctx, "large")
	assert.NoError(t, err)
	assert.Equal(t, task.StatePendingApproval, large.State)
}

func TestService_TriagesExternalTasks(t *testing.T) {
	ctx := context.Background()
	integration := &scriptedIntegration{name: "exec", failures: map[string]error{}}
	watcher, taskStore, _ := newTestWatcher(integration, nil)

	// a collaborator dropped a task file straight into needs-action
	_, err := taskStore.Create(ctx, &task.Task{ID: "ext", Integration: "exec", Payload: map[string]interface{}{}}, task.StateNeedsAction)
	assert.NoError(t, err)

	// a task owned by another integration must be left alone
	_, err = taskStore.Create(ctx, &task.Task{ID: "other", Integration: "billing", Payload: map[string]interface{}{}}, task.StateNeedsAction)
	assert.NoError(t, err)

	watcher.RunCycle(ctx)

	ext, err := taskStore.Read(ctx, "ext")
	assert.NoError(t, err)
	assert.Equal(t, task.StateDone, ext.State)

	other, err := taskStore.Read(ctx, "other")
	assert.NoError(t, err)
	assert.Equal(t, task.StateNeedsAction, other.State)
}

func TestService_ReplayBacklog(t *testing.T) {
	ctx := context.Background()
	integration := &scriptedIntegration{
		name:      "exec",
		proposals: []*task.Proposal{{ID: "t1", Integration: "exec", Payload: map[string]interface{}{}}},
		failures:  map[string]error{"t1": types.NewTransientError(fmt.Errorf("outage"))},
	}
	watcher, taskStore, backlog := newTestWatcher(integration, nil)

	// first cycle: execution hits the outage, task parks failed, retry queued
	watcher.RunCycle(ctx)
	failed, err := taskStore.Read(ctx, "t1")
	assert.NoError(t, err)
	assert.Equal(t, task.StateFailed, failed.State)
	assert.Equal(t, 1, backlog.Depth(ctx))

	// outage persists: operation is re-enqueued, task stays failed
	watcher.RunCycle(ctx)
	assert.Equal(t, 1, backlog.Depth(ctx))

	// outage clears: the replay succeeds and the original task reconciles
	delete(integration.failures, "t1")
	watcher.RunCycle(ctx)
	assert.Equal(t, 0, backlog.Depth(ctx))

	done, err := taskStore.Read(ctx, "t1")
	assert.NoError(t, err)
	assert.Equal(t, task.StateDone, done.State)
	assert.True(t, done.Result.Replayed)
}

func TestService_ReplayDropsPermanentFailures(t *testing.T) {
	ctx := context.Background()
	integration := &scriptedIntegration{
		name:     "exec",
		failures: map[string]error{"t1": types.NewPermanentError(fmt.Errorf("rejected"))},
	}
	watcher, _, backlog := newTestWatcher(integration, nil)

	backlog.Enqueue(ctx, &queue.Operation{Type: "execute", TaskID: "t1"})
	watcher.RunCycle(ctx)
	assert.Equal(t, 0, backlog.Depth(ctx), "permanently failing operation is dropped")
}

func TestService_StartAndShutdown(t *testing.T) {
	integration := &scriptedIntegration{name: "exec", failures: map[string]error{}}
	watcher, _, _ := newTestWatcher(integration, nil)
	watcher.config.PollingInterval = 5 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- watcher.Start(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	watcher.Shutdown()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after shutdown")
	}
}

func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, 10*time.Second, DefaultConfig().PollingInterval)
}
