// Package clock centralises time acquisition so tests can pin it.
package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// Stub pins Now to a fixed instant and returns a restore function.
func Stub(instant time.Time) func() {
	previous := NowFunc
	NowFunc = func() time.Time { return instant }
	return func() { NowFunc = previous }
}
