// Package secret provides the credential store consumed by integrations.
// Secrets are acquired by external interactive flows; this package only
// looks them up through an injected provider so tests never touch the
// process environment. Values are never logged - key names and outcomes
// only.
package secret

import (
	"context"
	"log"
)

// Provider is the backing key/value source for credentials scoped to a
// service name.
type Provider interface {
	Store(ctx context.Context, service, key, value string) error
	Retrieve(ctx context.Context, service, key string) (string, bool)
	Delete(ctx context.Context, service, key string) error
}

// Service exposes credential operations for a single external service.
type Service struct {
	service  string
	provider Provider
}

// New creates a credential store scoped to the given service name.
func New(service string, provider Provider) *Service {
	if provider == nil {
		provider = NewEnvProvider()
	}
	return &Service{service: service, provider: provider}
}

// Store persists a credential value under the service-scoped key.
func (s *Service) Store(ctx context.Context, key, value string) bool {
	if err := s.provider.Store(ctx, s.service, key, value); err != nil {
		log.Printf("secret %s: failed to store %s: %v", s.service, key, err)
		return false
	}
	return true
}

// Retrieve looks up a credential, trying the service-prefixed key first and
// falling back to the bare key for backward compatibility.
func (s *Service) Retrieve(ctx context.Context, key string) (string, bool) {
	if value, ok := s.provider.Retrieve(ctx, s.service, key); ok {
		return value, true
	}
	if value, ok := s.provider.Retrieve(ctx, "", key); ok {
		return value, true
	}
	log.Printf("secret %s: %s not found", s.service, key)
	return "", false
}

// Delete removes a credential.
func (s *Service) Delete(ctx context.Context, key string) bool {
	if err := s.provider.Delete(ctx, s.service, key); err != nil {
		log.Printf("secret %s: failed to delete %s: %v", s.service, key, err)
		return false
	}
	return true
}
