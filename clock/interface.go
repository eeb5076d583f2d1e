// Package clock abstracts wall-clock time so age-based logic (payment
// threshold curves, pending-payable timeouts) can be driven by a fake
// clock in tests instead of sleeping in real time.
package clock

import "time"

// Clock is satisfied by both the real, wall-clock-backed implementation
// and a test double whose Now() is set by hand.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// TickAfter returns a channel that receives the current time once
	// duration has elapsed.
	TickAfter(duration time.Duration) <-chan time.Time
}
