package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/taskvault/extension"
	"github.com/viant/taskvault/model/task"
	"github.com/viant/taskvault/model/types"
	"github.com/viant/taskvault/policy"
	"github.com/viant/taskvault/policy/rule"
	"github.com/viant/taskvault/service/queue"
	qmemory "github.com/viant/taskvault/service/queue/memory"
	"github.com/viant/taskvault/service/store"
	smemory "github.com/viant/taskvault/service/store/memory"
)

// fakeIntegration scripts Execute outcomes per task identifier.
type fakeIntegration struct {
	name     string
	failures map[string]error
	executed []string
}

func (f *fakeIntegration) Name() string { return f.name }

func (f *fakeIntegration) Poll(ctx context.Context) ([]*task.Proposal, error) {
	return nil, nil
}

func (f *fakeIntegration) Execute(ctx context.Context, t *task.Task) error {
	f.executed = append(f.executed, t.ID)
	return f.failures[t.ID]
}

// queueProvider maps every integration to one in-memory backlog.
type queueProvider struct {
	queues map[string]queue.Service
}

func newQueueProvider() *queueProvider {
	return &queueProvider{queues: make(map[string]queue.Service)}
}

func (p *queueProvider) Queue(integration string) queue.Service {
	if q, ok := p.queues[integration]; ok {
		return q
	}
	q := qmemory.New()
	p.queues[integration] = q
	return q
}

func newTestEngine(integration *fakeIntegration, approvalPolicy *policy.Policy) (*Service, *smemory.Service, *queueProvider) {
	taskStore := smemory.New()
	queues := newQueueProvider()
	integrations := extension.NewIntegrations()
	if integration != nil {
		integrations.Register(integration)
	}
	return New(taskStore, approvalPolicy, integrations, queues, nil), taskStore, queues
}

func thresholdPolicy(limit float64) *policy.Policy {
	return &policy.Policy{
		Mode:  policy.ModeAuto,
		Rules: []*rule.Rule{{Field: "amount", Operator: ">", Value: limit}},
	}
}

func TestService_Submit(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		description string
		policy      *policy.Policy
		payload     map[string]interface{}
		expected    task.State
	}{
		{
			description: "under threshold auto-approves",
			policy:      thresholdPolicy(100),
			payload:     map[string]interface{}{"amount": 50.0},
			expected:    task.StateApproved,
		},
		{
			description: "over threshold parks for approval",
			policy:      thresholdPolicy(100),
			payload:     map[string]interface{}{"amount": 500.0},
			expected:    task.StatePendingApproval,
		},
		{
			description: "block-listed action is rejected outright",
			policy:      &policy.Policy{Mode: policy.ModeAuto, BlockList: []string{"rm"}},
			payload:     map[string]interface{}{"action": "rm"},
			expected:    task.StateRejected,
		},
	}

	for _, testCase := range testCases {
		engine, taskStore, _ := newTestEngine(&fakeIntegration{name: "exec"}, testCase.policy)
		submitted, err := engine.Submit(ctx, &task.Proposal{Integration: "exec", Payload: testCase.payload})
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		stored, err := taskStore.Read(ctx, submitted.ID)
		assert.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expected, stored.State, testCase.description)
		if testCase.expected == task.StateRejected {
			assert.NotNil(t, stored.Decision, testCase.description)
			assert.False(t, stored.Decision.Approved, testCase.description)
		}
	}
}

func TestService_SubmitSanitizesPayload(t *testing.T) {
	ctx := context.Background()
	engine, taskStore, _ := newTestEngine(&fakeIntegration{name: "exec"}, nil)

	submitted, err := engine.Submit(ctx, &task.Proposal{
		Integration: "exec",
		Payload:     map[string]interface{}{"note": "api_key=sk-live-12345"},
	})
	assert.NoError(t, err)

	stored, err := taskStore.Read(ctx, submitted.ID)
	assert.NoError(t, err)
	assert.Equal(t, "api_key=<redacted>", stored.Payload["note"])
}

func TestService_Triage(t *testing.T) {
	ctx := context.Background()
	engine, taskStore, _ := newTestEngine(&fakeIntegration{name: "exec"}, thresholdPolicy(100))

	// externally dropped task, over threshold
	_, err := taskStore.Create(ctx, &task.Task{ID: "t1", Integration: "exec", Payload: map[string]interface{}{"amount": 500.0}}, task.StateNeedsAction)
	assert.NoError(t, err)

	triaged, err := engine.Triage(ctx, "t1")
	assert.NoError(t, err)
	assert.Equal(t, task.StatePendingApproval, triaged.State)

	// triaging a task that is no longer in needs-action is a state conflict
	_, err = engine.Triage(ctx, "t1")
	assert.True(t, errors.Is(err, store.ErrStateConflict))
}

func TestService_Decide(t *testing.T) {
	ctx := context.Background()
	integration := &fakeIntegration{name: "exec"}
	engine, taskStore, _ := newTestEngine(integration, thresholdPolicy(100))

	submitted, err := engine.Submit(ctx, &task.Proposal{Integration: "exec", Payload: map[string]interface{}{"amount": 500.0}})
	assert.NoError(t, err)

	rejected, err := engine.Decide(ctx, submitted.ID, false, "alice", "over budget")
	assert.NoError(t, err)
	assert.Equal(t, task.StateRejected, rejected.State)
	assert.Equal(t, "alice", rejected.Decision.Actor)
	assert.False(t, rejected.Decision.Approved)

	// a rejected task can never be executed
	_, err = engine.Execute(ctx, submitted.ID)
	assert.True(t, errors.Is(err, store.ErrStateConflict))
	assert.Empty(t, integration.executed, "rejected task must never reach the integration")

	// deciding twice is a state conflict
	_, err = engine.Decide(ctx, submitted.ID, true, "bob", "")
	assert.True(t, errors.Is(err, store.ErrStateConflict))

	stored, err := taskStore.Read(ctx, submitted.ID)
	assert.NoError(t, err)
	assert.Equal(t, task.StateRejected, stored.State)
}

func TestService_Execute(t *testing.T) {
	ctx := context.Background()
	integration := &fakeIntegration{name: "exec"}
	engine, _, _ := newTestEngine(integration, nil)

	submitted, err := engine.Submit(ctx, &task.Proposal{Integration: "exec", Payload: map[string]interface{}{"action": "deploy"}})
	assert.NoError(t, err)

	executed, err := engine.Execute(ctx, submitted.ID)
	assert.NoError(t, err)
	assert.Equal(t, task.StateDone, executed.State)
	assert.True(t, executed.Result.Success)
	assert.Equal(t, []string{submitted.ID}, integration.executed)

	// executing a finished task is a state conflict
	_, err = engine.Execute(ctx, submitted.ID)
	assert.True(t, errors.Is(err, store.ErrStateConflict))
}

func TestService_ExecuteTransientFailure(t *testing.T) {
	ctx := context.Background()
	integration := &fakeIntegration{name: "exec", failures: map[string]error{}}
	engine, _, queues := newTestEngine(integration, nil)

	submitted, err := engine.Submit(ctx, &task.Proposal{Integration: "exec", Payload: map[string]interface{}{"action": "send"}})
	assert.NoError(t, err)
	integration.failures[submitted.ID] = types.NewTransientError(fmt.Errorf("connection refused"))

	failed, err := engine.Execute(ctx, submitted.ID)
	assert.NoError(t, err)
	assert.Equal(t, task.StateFailed, failed.State)
	assert.False(t, failed.Result.Success)
	assert.Contains(t, failed.Result.Error, "connection refused")

	// exactly one retry operation lands on the integration's queue
	backlog := queues.Queue("exec")
	assert.Equal(t, 1, backlog.Depth(ctx))
	op := backlog.Dequeue(ctx)
	if assert.NotNil(t, op) {
		assert.Equal(t, "execute", op.Type)
		assert.Equal(t, submitted.ID, op.TaskID)
	}
}

func TestService_ExecutePermanentFailure(t *testing.T) {
	ctx := context.Background()
	integration := &fakeIntegration{name: "exec", failures: map[string]error{}}
	engine, _, queues := newTestEngine(integration, nil)

	submitted, err := engine.Submit(ctx, &task.Proposal{Integration: "exec", Payload: map[string]interface{}{"action": "send"}})
	assert.NoError(t, err)
	integration.failures[submitted.ID] = types.NewPermanentError(fmt.Errorf("invalid recipient"))

	failed, err := engine.Execute(ctx, submitted.ID)
	assert.NoError(t, err)
	assert.Equal(t, task.StateFailed, failed.State)

	// permanent failures are never retried
	assert.Equal(t, 0, queues.Queue("exec").Depth(ctx))
}

func TestService_ExecuteUnknownIntegration(t *testing.T) {
	ctx := context.Background()
	engine, _, queues := newTestEngine(nil, nil)

	submitted, err := engine.Submit(ctx, &task.Proposal{Integration: "ghost", Payload: map[string]interface{}{}})
	assert.NoError(t, err)

	failed, err := engine.Execute(ctx, submitted.ID)
	assert.NoError(t, err)
	assert.Equal(t, task.StateFailed, failed.State)
	assert.Contains(t, failed.Result.Error, "ghost")
	assert.Equal(t, 0, queues.Queue("ghost").Depth(ctx))
}

func TestService_Reconcile(t *testing.T) {
	ctx := context.Background()
	integration := &fakeIntegration{name: "exec", failures: map[string]error{}}
	engine, _, _ := newTestEngine(integration, nil)

	submitted, err := engine.Submit(ctx, &task.Proposal{Integration: "exec", Payload: map[string]interface{}{}})
	assert.NoError(t, err)
	integration.failures[submitted.ID] = types.NewTransientError(fmt.Errorf("outage"))
	_, err = engine.Execute(ctx, submitted.ID)
	assert.NoError(t, err)

	// the original task transitions to done once its operation replayed
	reconciled, err := engine.Reconcile(ctx, submitted.ID)
	assert.NoError(t, err)
	assert.Equal(t, task.StateDone, reconciled.State)
	assert.True(t, reconciled.Result.Success)
	assert.True(t, reconciled.Result.Replayed)

	// reconciling a task that is not failed is a state conflict
	_, err = engine.Reconcile(ctx, submitted.ID)
	assert.True(t, errors.Is(err, store.ErrStateConflict))
}

func TestService_AnnotationsSanitized(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(&fakeIntegration{name: "exec"}, thresholdPolicy(100))

	submitted, err := engine.Submit(ctx, &task.Proposal{Integration: "exec", Payload: map[string]interface{}{"amount": 500.0}})
	assert.NoError(t, err)

	decided, err := engine.Decide(ctx, submitted.ID, false, "alice", "leaked token=abc in request")
	assert.NoError(t, err)
	assert.Equal(t, "leaked token=<redacted> in request", decided.Decision.Reason)
}
