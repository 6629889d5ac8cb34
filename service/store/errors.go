package store

import "errors"

// Sentinel errors shared by every store implementation. Callers detect
// conditions with errors.Is instead of string comparison.
var (
	// ErrStateConflict is returned when a move's from-state precondition does
	// not hold - the caller lost a race or acted on stale data.
	ErrStateConflict = errors.New("store: state conflict")

	// ErrNotFound is returned when no state folder holds the requested task.
	ErrNotFound = errors.New("store: task not found")

	// ErrInvalidState is returned when a state folder is missing from the
	// vault; the layout validator should have created it.
	ErrInvalidState = errors.New("store: invalid state")

	// ErrInvalidID indicates an empty or otherwise unusable task id.
	ErrInvalidID = errors.New("store: invalid id")
)
