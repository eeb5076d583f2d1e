// Package ticker provides a thin interface over time.Ticker so production
// code can be driven by wall-clock time while tests drive it by hand.
package ticker

import "time"

// Ticker is satisfied by both the real, wall-clock-backed ticker and a
// test double that only ticks when told to.
type Ticker interface {
	// Ticks returns the channel on which ticks are delivered.
	Ticks() <-chan time.Time

	// Resume starts the ticker delivering ticks at its configured
	// interval.
	Resume()

	// Pause stops ticks from being delivered; Resume can restart it.
	Pause()

	// Stop releases the ticker's resources. A stopped ticker cannot be
	// resumed.
	Stop()
}
