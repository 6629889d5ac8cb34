// Package exec is the built-in execution integration: it carries out an
// approved task by running its payload as shell commands, locally or over
// SSH. It demonstrates the collaborator contract end to end - other
// integrations (mailbox triage, invoicing) follow the same shape.
package exec

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs/url"
	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
	rssh "github.com/viant/gosh/runner/ssh"
	"github.com/viant/scy/cred/secret"
	"golang.org/x/crypto/ssh"

	"github.com/viant/taskvault/model/task"
	"github.com/viant/taskvault/model/types"
)

const Name = "exec"

// Service executes command payloads through gosh sessions, one per host.
type Service struct {
	sessions map[string]*gosh.Service
	mux      sync.Mutex
}

var _ types.Integration = (*Service)(nil)

// New creates the exec integration.
func New() *Service {
	return &Service{sessions: make(map[string]*gosh.Service)}
}

// Name returns the integration tag.
func (s *Service) Name() string {
	return Name
}

// Poll reports no work: exec is execution-only, its tasks are submitted by
// other collaborators or dropped into the vault directly.
func (s *Service) Poll(ctx context.Context) ([]*task.Proposal, error) {
	return nil, nil
}

// Execute runs the task's command batch. Session failures are transient
// (host unreachable); a non-zero exit status is a permanent rejection.
func (s *Service) Execute(ctx context.Context, t *task.Task) error {
	input, err := inputFromTask(t)
	if err != nil {
		return types.NewPermanentError(err)
	}

	session, err := s.getSession(ctx, input.Host, input.Env)
	if err != nil {
		return types.NewTransientError(fmt.Errorf("failed to open session on %s: %w", input.Host.URL, err))
	}
	if input.Directory != "" {
		if _, _, err = session.Run(ctx, fmt.Sprintf("cd %s", input.Directory)); err != nil {
			return types.NewTransientError(fmt.Errorf("failed to change directory: %w", err))
		}
	}

	abortOnError := true
	if input.AbortOnError != nil {
		abortOnError = *input.AbortOnError
	}
	timeout := time.Duration(input.TimeoutMs) * time.Millisecond
	if timeout == 0 {
		timeout = time.Minute
	}

	for _, command := range input.Commands {
		output, status, err := session.Run(ctx, command, runner.WithTimeout(int(timeout.Milliseconds())))
		if err != nil {
			return types.NewTransientError(fmt.Errorf("command %q did not complete: %w", command, err))
		}
		if status != 0 && abortOnError {
			return types.NewPermanentError(fmt.Errorf("command %q exited with status %d: %s", command, status, strings.TrimSpace(output)))
		}
	}
	return nil
}

// getSession returns a cached session for the host or opens a new one.
func (s *Service) getSession(ctx context.Context, host *Host, env map[string]string) (*gosh.Service, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if session, ok := s.sessions[host.URL]; ok {
		return session, nil
	}

	var options []runner.Option
	if len(env) > 0 {
		options = append(options, runner.WithEnvironment(env))
	}

	var session *gosh.Service
	var err error
	if url.Host(host.URL) == "localhost" {
		session, err = gosh.New(ctx, local.New(options...))
	} else {
		config, cfgErr := s.sshConfig(ctx, host)
		if cfgErr != nil {
			return nil, fmt.Errorf("failed to load SSH credentials: %w", cfgErr)
		}
		address := url.Host(host.URL)
		if !strings.Contains(address, ":") {
			address += ":22"
		}
		session, err = gosh.New(ctx, rssh.New(address, config, options...))
	}
	if err != nil {
		return nil, err
	}
	s.sessions[host.URL] = session
	return session, nil
}

// sshConfig resolves the host's SSH client config from its scy credentials.
func (s *Service) sshConfig(ctx context.Context, host *Host) (*ssh.ClientConfig, error) {
	credentials := host.Credentials
	if credentials == "" {
		credentials = "localhost"
	}
	secrets := secret.New()
	generic, err := secrets.GetCredentials(ctx, credentials)
	if err != nil {
		return nil, err
	}
	return generic.SSH.Config(ctx)
}

// Close releases every cached session.
func (s *Service) Close() error {
	s.mux.Lock()
	defer s.mux.Unlock()

	var failures []string
	for id, session := range s.sessions {
		if err := session.Close(); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", id, err))
		}
	}
	s.sessions = make(map[string]*gosh.Service)
	if len(failures) > 0 {
		return fmt.Errorf("failed to close sessions: %s", strings.Join(failures, "; "))
	}
	return nil
}

// decodePayload round-trips a payload map into a typed struct.
func decodePayload(payload map[string]interface{}, target interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
