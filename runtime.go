package taskvault

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/taskvault/extension"
	"github.com/viant/taskvault/policy"
	"github.com/viant/taskvault/service/audit"
	"github.com/viant/taskvault/service/engine"
	"github.com/viant/taskvault/service/store"
	"github.com/viant/taskvault/service/vault"
	"github.com/viant/taskvault/service/watcher"
)

// recoverable is implemented by stores that can resolve interrupted moves
// left behind by a crash.
type recoverable interface {
	Recover(ctx context.Context) error
}

// Runtime owns the started watcher loops and the engine they drive.
type Runtime struct {
	config       *Config
	fs           afs.Service
	store        store.Service
	queues       engine.QueueProvider
	trail        *audit.Trail
	policy       *policy.Policy
	integrations *extension.Integrations
	validator    *vault.Validator

	engine   *engine.Service
	watchers []*watcher.Service
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// Start validates the vault, recovers interrupted moves, loads the approval
// policy, and launches one watcher loop per registered integration. It is
// the single fail-fast gate: no watcher runs against an invalid vault.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("runtime already started")
	}

	if r.config.Vault.Scaffold {
		if err := r.validator.Scaffold(ctx); err != nil {
			return fmt.Errorf("failed to scaffold vault: %w", err)
		}
	}
	if ok, problems := r.validator.Validate(ctx); !ok {
		return fmt.Errorf("invalid vault %s: %s", r.config.Vault.URL, strings.Join(problems, "; "))
	}
	if recoverableStore, ok := r.store.(recoverable); ok {
		if err := recoverableStore.Recover(ctx); err != nil {
			return fmt.Errorf("failed to recover task store: %w", err)
		}
	}
	if r.policy == nil {
		loaded, err := policy.Load(ctx, r.fs, r.config.PolicyURL())
		if err != nil {
			return err
		}
		r.policy = loaded
	}

	r.engine = engine.New(r.store, r.policy, r.integrations, r.queues, r.trail)

	config := watcher.Config{PollingInterval: r.config.Watcher.PollingInterval()}
	for _, name := range r.integrations.Names() {
		integration := r.integrations.Lookup(name)
		w := watcher.New(integration, r.engine, r.store, r.queues.Queue(name), config)
		r.watchers = append(r.watchers, w)
		r.wg.Add(1)
		go func(w *watcher.Service, name string) {
			defer r.wg.Done()
			if err := w.Start(ctx); err != nil && err != context.Canceled {
				log.Printf("watcher %s stopped: %v", name, err)
			}
		}(w, name)
	}
	r.started = true
	return nil
}

// Shutdown stops every watcher at its next cycle boundary and waits for the
// loops to exit. In-flight transitions always complete.
func (r *Runtime) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return
	}
	for _, w := range r.watchers {
		w.Shutdown()
	}
	r.wg.Wait()
	r.watchers = nil
	r.started = false
}

// Engine returns the workflow engine for hosts that submit or decide tasks
// directly, e.g. an approval UI bridge. Available after Start.
func (r *Runtime) Engine() *engine.Service {
	return r.engine
}

// Validator exposes the vault validator, letting command wrappers fail fast
// via ValidateOrExit before starting anything.
func (r *Runtime) Validator() *vault.Validator {
	return r.validator
}
