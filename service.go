package taskvault

import (
	"log"

	"github.com/viant/afs"
	"github.com/viant/taskvault/extension"
	"github.com/viant/taskvault/model/types"
	"github.com/viant/taskvault/policy"
	"github.com/viant/taskvault/service/audit"
	"github.com/viant/taskvault/service/engine"
	qfs "github.com/viant/taskvault/service/queue/fs"
	"github.com/viant/taskvault/service/secret"
	"github.com/viant/taskvault/service/store"
	sfs "github.com/viant/taskvault/service/store/fs"
	"github.com/viant/taskvault/service/vault"
	"github.com/viant/x"
)

// Service is the top-level façade wiring the vault validator, task store,
// operation queues, audit trail, approval policy and watcher loops.
type Service struct {
	config          *Config
	fs              afs.Service
	store           store.Service
	queues          engine.QueueProvider
	trail           *audit.Trail
	policy          *policy.Policy
	secrets         secret.Provider
	integrations    *extension.Integrations
	integrationList []types.Integration
	payloadTypes    []*x.Type
	runtime         *Runtime
}

// New creates the service. Component defaults mirror a vault on the local
// file system; options replace any of them.
func New(options ...Option) *Service {
	ret := &Service{config: DefaultConfig(), runtime: &Runtime{}}
	ret.init(options)
	return ret
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()

	s.integrations = extension.NewIntegrations(s.payloadTypes...)
	for _, integration := range s.integrationList {
		s.integrations.Register(integration)
	}

	s.runtime.config = s.config
	s.runtime.fs = s.fs
	s.runtime.store = s.store
	s.runtime.queues = s.queues
	s.runtime.trail = s.trail
	s.runtime.policy = s.policy
	s.runtime.integrations = s.integrations
	s.runtime.validator = vault.New(s.config.Vault.URL, s.fs)
}

func (s *Service) ensureBaseSetup() {
	if err := s.config.Validate(); err != nil {
		log.Printf("taskvault: invalid configuration: %v", err)
		s.config = DefaultConfig()
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	if s.store == nil {
		taskStore, err := sfs.New(s.config.Vault.URL, s.fs)
		if err != nil {
			log.Printf("taskvault: failed to create task store: %v", err)
		}
		s.store = taskStore
	}
	if s.queues == nil {
		s.queues = qfs.NewProvider(s.config.QueuesURL(), s.fs)
	}
	if s.trail == nil {
		s.trail = audit.NewTrail(s.config.LogsURL(), s.fs)
	}
	if s.secrets == nil {
		s.secrets = secret.NewEnvProvider()
	}
}

// Register adds an integration after construction.
func (s *Service) Register(integration types.Integration) {
	s.integrations.Register(integration)
}

// Secrets returns a credential store scoped to the given external service.
func (s *Service) Secrets(service string) *secret.Service {
	return secret.New(service, s.secrets)
}

// Runtime returns the runtime handle used to start and stop the watchers.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}
