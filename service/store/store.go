package store

import (
	"context"

	"github.com/viant/taskvault/model/task"
)

// Annotator mutates a task copy during a move, typically to stamp a decision
// or an execution result. It runs before the annotated copy is persisted.
type Annotator func(t *task.Task)

// Service persists tasks; the folder holding a task's file is its state.
type Service interface {
	// Create persists a new task into the given state and returns its id.
	Create(ctx context.Context, t *task.Task, state task.State) (string, error)

	// Move relocates the task from one state to another, applying annotate to
	// the persisted copy. It fails with ErrStateConflict when the task is not
	// currently in from.
	Move(ctx context.Context, id string, from, to task.State, annotate Annotator) (*task.Task, error)

	// List returns every task currently in the given state. Listing a state
	// whose folder does not exist fails with ErrInvalidState.
	List(ctx context.Context, state task.State) ([]*task.Task, error)

	// Read locates a task by id regardless of state, failing with
	// ErrNotFound when no state folder holds it.
	Read(ctx context.Context, id string) (*task.Task, error)
}
