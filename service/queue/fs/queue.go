package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/taskvault/internal/clock"
	"github.com/viant/taskvault/service/queue"
)

// Queue persists a backlog as one newline-delimited JSON record per
// operation in <baseURL>/<name>.queue. Dequeue reads the whole backlog,
// returns the head and rewrites the remainder - O(n) in depth, which is
// bounded by outage duration rather than throughput.
type Queue struct {
	name    string
	fileURL string
	fs      afs.Service
	mu      sync.Mutex
}

var _ queue.Service = (*Queue)(nil)

// New creates a file-backed operation queue scoped to a single integration.
func New(baseURL, name string, fs afs.Service) (*Queue, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("queue name cannot be empty")
	}
	if fs == nil {
		fs = afs.New()
	}
	return &Queue{
		name:    name,
		fileURL: path.Join(baseURL, name+".queue"),
		fs:      fs,
	}, nil
}

// Enqueue appends the operation to the queue file. The rewritten backlog is
// fully on disk before true is returned.
func (q *Queue) Enqueue(ctx context.Context, op *queue.Operation) bool {
	if op == nil {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	operations, ok := q.load(ctx)
	if !ok {
		return false
	}
	stamped := *op
	stamped.EnqueuedAt = clock.Now()
	return q.write(ctx, append(operations, &stamped))
}

// Dequeue returns the earliest operation not yet removed, rewriting the
// remainder of the backlog.
func (q *Queue) Dequeue(ctx context.Context) *queue.Operation {
	q.mu.Lock()
	defer q.mu.Unlock()

	operations, ok := q.load(ctx)
	if !ok || len(operations) == 0 {
		return nil
	}
	head := operations[0]
	if !q.write(ctx, operations[1:]) {
		return nil
	}
	return head
}

// Clear discards the whole backlog.
func (q *Queue) Clear(ctx context.Context) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	exists, err := q.fs.Exists(ctx, q.fileURL)
	if err != nil {
		log.Printf("queue %s: failed to check backlog: %v", q.name, err)
		return false
	}
	if !exists {
		return true
	}
	if err = q.fs.Delete(ctx, q.fileURL); err != nil {
		log.Printf("queue %s: failed to clear backlog: %v", q.name, err)
		return false
	}
	return true
}

// Depth returns the current backlog size.
func (q *Queue) Depth(ctx context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	operations, ok := q.load(ctx)
	if !ok {
		return 0
	}
	return len(operations)
}

func (q *Queue) load(ctx context.Context) ([]*queue.Operation, bool) {
	exists, err := q.fs.Exists(ctx, q.fileURL)
	if err != nil {
		log.Printf("queue %s: failed to check backlog: %v", q.name, err)
		return nil, false
	}
	if !exists {
		return nil, true
	}
	data, err := q.fs.DownloadWithURL(ctx, q.fileURL)
	if err != nil {
		log.Printf("queue %s: failed to read backlog: %v", q.name, err)
		return nil, false
	}
	var operations []*queue.Operation
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		op := &queue.Operation{}
		if err := json.Unmarshal([]byte(line), op); err != nil {
			log.Printf("queue %s: skipping malformed record: %v", q.name, err)
			continue
		}
		operations = append(operations, op)
	}
	return operations, true
}

func (q *Queue) write(ctx context.Context, operations []*queue.Operation) bool {
	if len(operations) == 0 {
		if exists, _ := q.fs.Exists(ctx, q.fileURL); exists {
			if err := q.fs.Delete(ctx, q.fileURL); err != nil {
				log.Printf("queue %s: failed to truncate backlog: %v", q.name, err)
				return false
			}
		}
		return true
	}
	var buffer bytes.Buffer
	for _, op := range operations {
		data, err := json.Marshal(op)
		if err != nil {
			log.Printf("queue %s: failed to marshal operation: %v", q.name, err)
			return false
		}
		buffer.Write(data)
		buffer.WriteByte('\n')
	}
	if err := q.fs.Upload(ctx, q.fileURL, file.DefaultFileOsMode, &buffer); err != nil {
		log.Printf("queue %s: failed to write backlog: %v", q.name, err)
		return false
	}
	return true
}
