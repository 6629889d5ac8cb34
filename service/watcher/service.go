// Package watcher runs one polling loop per integration: it submits newly
// detected proposals, triages externally dropped tasks, executes approved
// ones, and replays the integration's offline backlog. Cancellation is
// honored between cycles, never mid-transition.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/viant/taskvault/model/task"
	"github.com/viant/taskvault/model/types"
	"github.com/viant/taskvault/service/engine"
	"github.com/viant/taskvault/service/queue"
	"github.com/viant/taskvault/service/store"
	"github.com/viant/taskvault/tracing"
)

// Config represents watcher service configuration
type Config struct {
	// PollingInterval is how often the watcher runs a full cycle
	PollingInterval time.Duration
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		PollingInterval: 10 * time.Second,
	}
}

// Service is the per-integration polling driver.
type Service struct {
	config      Config
	integration types.Integration
	engine      *engine.Service
	store       store.Service
	queue       queue.Service
	shutdownCh  chan struct{}
}

// New creates a watcher for one integration. queue may be nil when the
// integration needs no offline buffering.
func New(integration types.Integration, eng *engine.Service, taskStore store.Service, backlog queue.Service, config Config) *Service {
	return &Service{
		config:      config,
		integration: integration,
		engine:      eng,
		store:       taskStore,
		queue:       backlog,
		shutdownCh:  make(chan struct{}),
	}
}

// Start begins the polling loop and blocks until cancellation or Shutdown.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.config.PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// Shutdown stops the loop at the next cycle boundary.
func (s *Service) Shutdown() {
	close(s.shutdownCh)
}

// RunCycle performs one synchronous poll cycle. Step failures are logged and
// never terminate the loop.
func (s *Service) RunCycle(ctx context.Context) {
	name := s.integration.Name()
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("watcher.cycle %s", name), "INTERNAL")
	defer tracing.EndSpan(span, nil)

	if err := s.submitProposals(ctx); err != nil {
		log.Printf("watcher %s: poll failed: %v", name, err)
	}
	if err := s.triagePending(ctx); err != nil {
		log.Printf("watcher %s: triage failed: %v", name, err)
	}
	if err := s.executeApproved(ctx); err != nil {
		log.Printf("watcher %s: execute failed: %v", name, err)
	}
	s.replayBacklog(ctx)
}

// submitProposals polls the integration and submits every proposal.
func (s *Service) submitProposals(ctx context.Context) error {
	proposals, err := s.integration.Poll(ctx)
	if err != nil {
		return err
	}
	for _, proposal := range proposals {
		if _, err := s.engine.Submit(ctx, proposal); err != nil {
			return err
		}
	}
	return nil
}

// triagePending classifies tasks external collaborators dropped into the
// needs-action folder for this integration.
func (s *Service) triagePending(ctx context.Context) error {
	tasks, err := s.store.List(ctx, task.StateNeedsAction)
	if err != nil {
		return err
	}
	for _, t := range s.owned(tasks) {
		if _, err := s.engine.Triage(ctx, t.ID); err != nil && !errors.Is(err, store.ErrStateConflict) {
			return err
		}
	}
	return nil
}

// executeApproved drives every approved task of this integration to
// execution. A state conflict means another driver got there first.
func (s *Service) executeApproved(ctx context.Context) error {
	tasks, err := s.store.List(ctx, task.StateApproved)
	if err != nil {
		return err
	}
	for _, t := range s.owned(tasks) {
		if _, err := s.engine.Execute(ctx, t.ID); err != nil && !errors.Is(err, store.ErrStateConflict) {
			return err
		}
	}
	return nil
}

// replayBacklog drains the offline queue head-first, reconciling each task
// whose operation now succeeds. A transient failure re-enqueues the
// operation and ends the drain until the next cycle.
func (s *Service) replayBacklog(ctx context.Context) {
	if s.queue == nil {
		return
	}
	name := s.integration.Name()
	for {
		op := s.queue.Dequeue(ctx)
		if op == nil {
			return
		}
		replay := &task.Task{ID: op.TaskID, Integration: name, Payload: op.Payload}
		if err := s.integration.Execute(ctx, replay); err != nil {
			if types.IsTransient(err) {
				s.queue.Enqueue(ctx, op)
			} else {
				log.Printf("watcher %s: dropping operation for task %s: %v", name, op.TaskID, err)
			}
			return
		}
		if _, err := s.engine.Reconcile(ctx, op.TaskID); err != nil && !errors.Is(err, store.ErrStateConflict) {
			log.Printf("watcher %s: failed to reconcile task %s: %v", name, op.TaskID, err)
		}
	}
}

func (s *Service) owned(tasks []*task.Task) []*task.Task {
	name := s.integration.Name()
	var owned []*task.Task
	for _, t := range tasks {
		if t.Integration == name {
			owned = append(owned, t)
		}
	}
	return owned
}
