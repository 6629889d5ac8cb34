package types

import (
	"context"

	"github.com/viant/taskvault/model/task"
)

// Integration is the collaborator contract every external source implements.
// The engine does not interpret payloads - it hands them back to the
// integration that produced them.
type Integration interface {
	// Name returns the integration tag stamped onto every task it produces.
	Name() string

	// Poll asks the integration for newly detected work. Proposals returned
	// here are submitted to the workflow engine by the watcher loop.
	Poll(ctx context.Context) ([]*task.Proposal, error)

	// Execute carries out an approved task. Implementations signal retryable
	// outages with NewTransientError and business rejections with
	// NewPermanentError.
	Execute(ctx context.Context, t *task.Task) error
}
