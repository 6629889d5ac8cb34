package idgen

import "github.com/google/uuid"

// NewFunc produces identifiers; overridable so tests get stable ids.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier as string.
func New() string { return NewFunc() }

// Stub replaces the generator with a deterministic sequence and returns a
// restore function.
func Stub(ids ...string) func() {
	previous := NewFunc
	next := 0
	NewFunc = func() string {
		if next >= len(ids) {
			return previous()
		}
		id := ids[next]
		next++
		return id
	}
	return func() { NewFunc = previous }
}
