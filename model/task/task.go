package task

import (
	"time"

	"github.com/viant/taskvault/internal/clock"
	"github.com/viant/taskvault/internal/idgen"
)

// Task represents a single unit of proposed work flowing through the vault.
type Task struct {
	ID          string                 `json:"id"`
	Integration string                 `json:"integration"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`

	// State mirrors the folder the task file was read from. It is populated
	// on read and used only as the precondition of a move - the folder is the
	// source of truth.
	State State `json:"-"`

	Decision *Decision `json:"decision,omitempty"`
	Result   *Result   `json:"result,omitempty"`
}

// Decision records who approved or rejected a task, and when.
type Decision struct {
	Actor     string    `json:"actor"`
	Approved  bool      `json:"approved"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

// Result records the outcome of executing an approved task.
type Result struct {
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completedAt"`

	// Replayed marks a task reconciled to done after its queued operation
	// eventually succeeded.
	Replayed bool `json:"replayed,omitempty"`
}

// Proposal is what an integration's watcher produces: a payload describing a
// candidate action, before any classification took place.
type Proposal struct {
	ID          string                 `json:"id,omitempty"`
	Integration string                 `json:"integration"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
}

// New creates a task from a proposal, assigning an identifier when the
// proposal did not suggest one.
func New(proposal *Proposal) *Task {
	id := proposal.ID
	if id == "" {
		id = idgen.New()
	}
	return &Task{
		ID:          id,
		Integration: proposal.Integration,
		Payload:     proposal.Payload,
		CreatedAt:   clock.Now(),
	}
}

// Decide stamps a decision onto the task.
func (t *Task) Decide(actor string, approved bool, reason string) {
	t.Decision = &Decision{
		Actor:     actor,
		Approved:  approved,
		Reason:    reason,
		DecidedAt: clock.Now(),
	}
}

// Complete stamps a successful execution result.
func (t *Task) Complete() {
	t.Result = &Result{Success: true, CompletedAt: clock.Now()}
}

// Fail stamps a failed execution result.
func (t *Task) Fail(err error) {
	result := &Result{CompletedAt: clock.Now()}
	if err != nil {
		result.Error = err.Error()
	}
	t.Result = result
}

// Clone returns a deep copy so callers can annotate without mutating the
// shared instance.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	clone := *t
	if t.Payload != nil {
		clone.Payload = make(map[string]interface{}, len(t.Payload))
		for k, v := range t.Payload {
			clone.Payload[k] = v
		}
	}
	if t.Decision != nil {
		decision := *t.Decision
		clone.Decision = &decision
	}
	if t.Result != nil {
		result := *t.Result
		clone.Result = &result
	}
	return &clone
}
