// Package queue provides the durable per-integration operation backlog used
// when a downstream service is unreachable. Operations replay strictly in
// enqueue order; a queue assumes a single consumer process.
package queue

import (
	"context"
	"time"
)

// Operation is a serialized request awaiting resubmission to a downstream
// integration.
type Operation struct {
	Type       string                 `json:"type"`
	TaskID     string                 `json:"taskId,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	EnqueuedAt time.Time              `json:"enqueuedAt"`
}

// Service is a durable FIFO of pending operations. All methods degrade on
// storage errors - false, nil or zero - rather than failing, so a watcher's
// retry cycle is never crashed by queue I/O; errors are logged instead.
type Service interface {
	// Enqueue durably appends an operation, stamping its enqueue time.
	Enqueue(ctx context.Context, op *Operation) bool

	// Dequeue removes and returns the earliest operation, or nil when empty.
	Dequeue(ctx context.Context) *Operation

	// Clear discards the entire backlog.
	Clear(ctx context.Context) bool

	// Depth returns the number of operations awaiting resubmission.
	Depth(ctx context.Context) int
}
