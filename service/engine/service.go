package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/viant/taskvault/model/task"
	"github.com/viant/taskvault/model/types"
	"github.com/viant/taskvault/policy"
	"github.com/viant/taskvault/service/audit"
	"github.com/viant/taskvault/service/queue"
	"github.com/viant/taskvault/service/store"
	"github.com/viant/taskvault/tracing"
)

// QueueProvider resolves the operation queue scoped to one integration.
type QueueProvider interface {
	Queue(integration string) queue.Service
}

// Service drives every task transition: it classifies newly submitted
// proposals, applies decisions, and executes approved tasks through their
// originating integration. It is the only writer of transitions.
type Service struct {
	store        store.Service
	policy       *policy.Policy
	integrations Integrations
	queues       QueueProvider
	trail        *audit.Trail
}

// Integrations resolves the execution collaborator for a task's tag.
type Integrations interface {
	Lookup(name string) types.Integration
}

// New creates a workflow engine. trail may be nil when auditing is handled
// elsewhere; queues may be nil when offline buffering is not needed.
func New(store store.Service, approvalPolicy *policy.Policy, integrations Integrations, queues QueueProvider, trail *audit.Trail) *Service {
	return &Service{
		store:        store,
		policy:       approvalPolicy,
		integrations: integrations,
		queues:       queues,
		trail:        trail,
	}
}

// Submit classifies a proposal and creates the task in the resulting state:
// approved outright, parked for approval, or rejected by policy.
func (s *Service) Submit(ctx context.Context, proposal *task.Proposal) (t *task.Task, err error) {
	if proposal == nil {
		return nil, fmt.Errorf("cannot submit nil proposal")
	}
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("engine.Submit %s", proposal.Integration), "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	t = task.New(proposal)
	t.Payload, _ = audit.Sanitize(t.Payload).(map[string]interface{})

	var state task.State
	switch s.policy.Classify(t) {
	case policy.Deny:
		t.Decide("policy", false, "blocked by policy")
		state = task.StateRejected
	case policy.RequireApproval:
		state = task.StatePendingApproval
	default:
		state = task.StateApproved
	}
	if _, err = s.store.Create(ctx, t, state); err != nil {
		return nil, err
	}
	s.audit(ctx, &audit.Record{
		Event:       "submitted",
		TaskID:      t.ID,
		Integration: t.Integration,
		To:          state,
	})
	return t, nil
}

// Triage classifies a task that an external collaborator dropped into the
// needs-action folder, moving it to the state the policy dictates.
func (s *Service) Triage(ctx context.Context, id string) (t *task.Task, err error) {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("engine.Triage %s", id), "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	t, err = s.store.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.State != task.StateNeedsAction {
		return nil, fmt.Errorf("task %s is not awaiting triage: %w", id, store.ErrStateConflict)
	}

	var to task.State
	var annotate store.Annotator
	switch s.policy.Classify(t) {
	case policy.Deny:
		to = task.StateRejected
		annotate = func(t *task.Task) { t.Decide("policy", false, "blocked by policy") }
	case policy.RequireApproval:
		to = task.StatePendingApproval
	default:
		to = task.StateApproved
	}
	if t, err = s.move(ctx, id, task.StateNeedsAction, to, annotate); err != nil {
		return nil, err
	}
	s.audit(ctx, &audit.Record{
		Event:       "triaged",
		TaskID:      t.ID,
		Integration: t.Integration,
		From:        task.StateNeedsAction,
		To:          to,
	})
	return t, nil
}

// Decide applies a human (or policy) decision to a task pending approval.
// Only tasks currently in the pending state can be decided; anything else is
// a state conflict.
func (s *Service) Decide(ctx context.Context, id string, approved bool, actor, reason string) (t *task.Task, err error) {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("engine.Decide %s", id), "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	to := task.StateRejected
	if approved {
		to = task.StateApproved
	}
	t, err = s.move(ctx, id, task.StatePendingApproval, to, func(t *task.Task) {
		t.Decide(actor, approved, reason)
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, &audit.Record{
		Event:       "decided",
		TaskID:      t.ID,
		Integration: t.Integration,
		From:        task.StatePendingApproval,
		To:          to,
		Actor:       actor,
		Detail:      map[string]interface{}{"reason": reason},
	})
	return t, nil
}

// Execute runs an approved task through its integration. Success completes
// the task; a transient failure parks it in the failed state and enqueues a
// retry operation; a permanent failure parks it with no retry.
func (s *Service) Execute(ctx context.Context, id string) (t *task.Task, err error) {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("engine.Execute %s", id), "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	t, err = s.store.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.State != task.StateApproved {
		return nil, fmt.Errorf("task %s is not approved: %w", id, store.ErrStateConflict)
	}

	integration := s.integrations.Lookup(t.Integration)
	if integration == nil {
		return s.fail(ctx, t, types.NewPermanentError(types.NewIntegrationNotFoundError(t.Integration)))
	}
	if execErr := integration.Execute(ctx, t); execErr != nil {
		return s.fail(ctx, t, execErr)
	}

	t, err = s.move(ctx, id, task.StateApproved, task.StateDone, func(t *task.Task) {
		t.Complete()
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, &audit.Record{
		Event:       "executed",
		TaskID:      t.ID,
		Integration: t.Integration,
		From:        task.StateApproved,
		To:          task.StateDone,
	})
	return t, nil
}

// Reconcile closes a failed task whose queued operation eventually replayed
// successfully. The original task, not a new one, transitions to done.
func (s *Service) Reconcile(ctx context.Context, id string) (t *task.Task, err error) {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("engine.Reconcile %s", id), "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	t, err = s.move(ctx, id, task.StateFailed, task.StateDone, func(t *task.Task) {
		t.Complete()
		t.Result.Replayed = true
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, &audit.Record{
		Event:       "reconciled",
		TaskID:      t.ID,
		Integration: t.Integration,
		From:        task.StateFailed,
		To:          task.StateDone,
	})
	return t, nil
}

// fail parks the task in the failed state and, for transient causes,
// enqueues exactly one retry operation on the integration's queue.
func (s *Service) fail(ctx context.Context, t *task.Task, execErr error) (*task.Task, error) {
	failed, err := s.move(ctx, t.ID, task.StateApproved, task.StateFailed, func(t *task.Task) {
		t.Fail(execErr)
	})
	if err != nil {
		return nil, err
	}
	transient := types.IsTransient(execErr)
	s.audit(ctx, &audit.Record{
		Event:       "execution_failed",
		TaskID:      failed.ID,
		Integration: failed.Integration,
		From:        task.StateApproved,
		To:          task.StateFailed,
		Detail: map[string]interface{}{
			"error":     execErr.Error(),
			"transient": transient,
		},
	})
	if transient && s.queues != nil {
		if q := s.queues.Queue(failed.Integration); q != nil {
			if q.Enqueue(ctx, &queue.Operation{Type: "execute", TaskID: failed.ID, Payload: failed.Payload}) {
				s.audit(ctx, &audit.Record{
					Event:       "enqueued",
					TaskID:      failed.ID,
					Integration: failed.Integration,
				})
			}
		}
	}
	return failed, nil
}

// move is the single guarded transition function: it rejects illegal
// lifecycle steps before delegating to the store's location-checked move.
func (s *Service) move(ctx context.Context, id string, from, to task.State, annotate store.Annotator) (*task.Task, error) {
	if !task.CanTransition(from, to) {
		return nil, fmt.Errorf("transition %s -> %s is not allowed: %w", from, to, store.ErrStateConflict)
	}
	return s.store.Move(ctx, id, from, to, func(t *task.Task) {
		if annotate != nil {
			annotate(t)
		}
		sanitizeAnnotations(t)
	})
}

// sanitizeAnnotations scrubs decision and result text so secrets never land
// in a task file.
func sanitizeAnnotations(t *task.Task) {
	if t.Decision != nil {
		t.Decision.Reason, _ = audit.Sanitize(t.Decision.Reason).(string)
	}
	if t.Result != nil {
		t.Result.Error, _ = audit.Sanitize(t.Result.Error).(string)
	}
}

func (s *Service) audit(ctx context.Context, record *audit.Record) {
	if s.trail == nil {
		return
	}
	if err := s.trail.Append(ctx, record); err != nil {
		log.Printf("engine: failed to append audit record: %v", err)
	}
}
