package clock

import "time"

// DefaultClock is the real, wall-clock-backed Clock.
type DefaultClock struct{}

// NewDefaultClock builds a DefaultClock.
func NewDefaultClock() *DefaultClock {
	return &DefaultClock{}
}

// Now returns time.Now().
func (DefaultClock) Now() time.Time {
	return time.Now()
}

// TickAfter returns time.After(duration).
func (DefaultClock) TickAfter(duration time.Duration) <-chan time.Time {
	return time.After(duration)
}
