package taskvault

import (
	"github.com/viant/afs"
	"github.com/viant/taskvault/model/types"
	"github.com/viant/taskvault/policy"
	"github.com/viant/taskvault/service/engine"
	"github.com/viant/taskvault/service/secret"
	"github.com/viant/taskvault/service/store"
	"github.com/viant/taskvault/tracing"
	"github.com/viant/x"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the service during New.
type Option func(s *Service)

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithVaultURL points the service at an existing vault root.
func WithVaultURL(URL string) Option {
	return func(s *Service) { s.config.Vault.URL = URL }
}

// WithScaffold creates the vault layout on startup when missing.
func WithScaffold() Option {
	return func(s *Service) { s.config.Vault.Scaffold = true }
}

// WithFS sets the abstract file system shared by the store, queues, audit
// trail and validator.
func WithFS(fs afs.Service) Option {
	return func(s *Service) { s.fs = fs }
}

// WithStore replaces the filesystem task store, e.g. with the in-memory one.
func WithStore(taskStore store.Service) Option {
	return func(s *Service) { s.store = taskStore }
}

// WithQueueProvider replaces the filesystem operation queues.
func WithQueueProvider(queues engine.QueueProvider) Option {
	return func(s *Service) { s.queues = queues }
}

// WithPolicy sets the approval policy directly, skipping the vault policy
// document.
func WithPolicy(approvalPolicy *policy.Policy) Option {
	return func(s *Service) { s.policy = approvalPolicy }
}

// WithIntegrations registers execution collaborators.
func WithIntegrations(integrations ...types.Integration) Option {
	return func(s *Service) {
		s.integrationList = append(s.integrationList, integrations...)
	}
}

// WithPayloadTypes registers the Go types integration payloads decode into.
func WithPayloadTypes(payloadTypes ...*x.Type) Option {
	return func(s *Service) {
		s.payloadTypes = append(s.payloadTypes, payloadTypes...)
	}
}

// WithSecretProvider sets the credential provider handed to integrations.
func WithSecretProvider(provider secret.Provider) Option {
	return func(s *Service) { s.secrets = provider }
}

// WithTracing configures OpenTelemetry tracing with the stdout exporter. If
// outputFile is empty spans go to stdout. First successful initialisation
// wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter (OTLP, Jaeger, Zipkin...).
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
