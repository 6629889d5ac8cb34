package types

import (
	"errors"
	"fmt"
)

// Sentinel markers letting the engine classify execution failures via
// errors.Is without depending on concrete integration error types.
var (
	// ErrTransient marks outages where a later retry may succeed.
	ErrTransient = errors.New("transient failure")

	// ErrPermanent marks rejections where a retry cannot change the outcome.
	ErrPermanent = errors.New("permanent failure")
)

// NewTransientError wraps err as a retryable execution failure.
func NewTransientError(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// NewPermanentError wraps err as a non-retryable execution failure.
func NewPermanentError(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsTransient reports whether err represents a retryable outage.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsPermanent reports whether err represents a business rejection.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

func NewIntegrationNotFoundError(name string) error {
	return fmt.Errorf("integration %v not found", name)
}
