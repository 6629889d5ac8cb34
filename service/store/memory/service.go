package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/taskvault/internal/idgen"
	"github.com/viant/taskvault/model/task"
	"github.com/viant/taskvault/service/store"
)

// Service is an in-memory task store used in tests and by hosts that embed
// the engine without a vault on disk. It mirrors the folder semantics of the
// filesystem store: a task lives in exactly one state bucket.
type Service struct {
	states map[task.State]map[string]*task.Task
	mu     sync.RWMutex
}

var _ store.Service = (*Service)(nil)

// New creates an in-memory store with every state bucket present.
func New() *Service {
	states := make(map[task.State]map[string]*task.Task)
	for _, state := range task.States() {
		states[state] = make(map[string]*task.Task)
	}
	return &Service{states: states}
}

// RemoveState drops a state bucket, simulating a missing vault folder.
func (s *Service) RemoveState(state task.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, state)
}

func (s *Service) Create(ctx context.Context, t *task.Task, state task.State) (string, error) {
	if t == nil {
		return "", fmt.Errorf("cannot create nil task")
	}
	if t.ID == "" {
		t.ID = idgen.New()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.states[state]
	if !ok {
		return "", fmt.Errorf("state %s: %w", state, store.ErrInvalidState)
	}
	t.State = state
	bucket[t.ID] = t.Clone()
	return t.ID, nil
}

func (s *Service) Move(ctx context.Context, id string, from, to task.State, annotate store.Annotator) (*task.Task, error) {
	if id == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	source, ok := s.states[from]
	if !ok {
		return nil, fmt.Errorf("state %s: %w", from, store.ErrInvalidState)
	}
	destination, ok := s.states[to]
	if !ok {
		return nil, fmt.Errorf("state %s: %w", to, store.ErrInvalidState)
	}
	t, ok := source[id]
	if !ok {
		return nil, fmt.Errorf("task %s is not in %s: %w", id, from, store.ErrStateConflict)
	}
	moved := t.Clone()
	moved.State = to
	if annotate != nil {
		annotate(moved)
	}
	delete(source, id)
	destination[id] = moved
	return moved.Clone(), nil
}

func (s *Service) List(ctx context.Context, state task.State) ([]*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, ok := s.states[state]
	if !ok {
		return nil, fmt.Errorf("state %s: %w", state, store.ErrInvalidState)
	}
	tasks := make([]*task.Task, 0, len(bucket))
	for _, t := range bucket {
		tasks = append(tasks, t.Clone())
	}
	return tasks, nil
}

func (s *Service) Read(ctx context.Context, id string) (*task.Task, error) {
	if id == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, state := range task.States() {
		bucket, ok := s.states[state]
		if !ok {
			continue
		}
		if t, ok := bucket[id]; ok {
			return t.Clone(), nil
		}
	}
	return nil, fmt.Errorf("task %s: %w", id, store.ErrNotFound)
}
