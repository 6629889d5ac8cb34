package memory

import (
	"context"
	"sync"

	"github.com/viant/taskvault/internal/clock"
	"github.com/viant/taskvault/service/queue"
)

// Queue is an in-memory operation backlog for tests and embedded hosts.
type Queue struct {
	operations []*queue.Operation
	mu         sync.Mutex
}

var _ queue.Service = (*Queue)(nil)

// New creates an empty in-memory queue.
func New() *Queue {
	return &Queue{}
}

func (q *Queue) Enqueue(ctx context.Context, op *queue.Operation) bool {
	if op == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	stamped := *op
	stamped.EnqueuedAt = clock.Now()
	q.operations = append(q.operations, &stamped)
	return true
}

func (q *Queue) Dequeue(ctx context.Context) *queue.Operation {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.operations) == 0 {
		return nil
	}
	head := q.operations[0]
	q.operations = q.operations[1:]
	return head
}

func (q *Queue) Clear(ctx context.Context) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.operations = nil
	return true
}

func (q *Queue) Depth(ctx context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.operations)
}
