package ticker

import "time"

// Mock is a test double whose ticks are driven explicitly via Tick, so
// scan-interval-driven code can be tested without sleeping in real time.
type Mock struct {
	c      chan time.Time
	paused bool
}

// NewMock builds a Mock ticker with no ticks queued.
func NewMock() *Mock {
	return &Mock{c: make(chan time.Time, 1)}
}

// Ticks returns the channel ticks arrive on.
func (m *Mock) Ticks() <-chan time.Time {
	return m.c
}

// Tick delivers a single tick at the given time, if the ticker isn't
// paused. Blocks if a previous tick hasn't been consumed yet.
func (m *Mock) Tick(at time.Time) {
	if m.paused {
		return
	}
	m.c <- at
}

// Resume un-pauses the ticker.
func (m *Mock) Resume() {
	m.paused = false
}

// Pause stops Tick from delivering until Resume is called.
func (m *Mock) Pause() {
	m.paused = true
}

// Stop is a no-op for Mock; nothing to release.
func (m *Mock) Stop() {}
