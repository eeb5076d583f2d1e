package ticker

import "time"

// Default wraps a real time.Ticker. Pause stops and discards the
// underlying timer; Resume allocates a fresh one at the same interval.
type Default struct {
	Interval time.Duration

	ticker *time.Ticker
}

// New builds a Default ticker already running at interval.
func New(interval time.Duration) *Default {
	return &Default{
		Interval: interval,
		ticker:   time.NewTicker(interval),
	}
}

// Ticks returns the channel ticks arrive on, or nil if paused or stopped.
func (d *Default) Ticks() <-chan time.Time {
	if d.ticker == nil {
		return nil
	}
	return d.ticker.C
}

// Resume restarts a paused ticker at its configured interval.
func (d *Default) Resume() {
	if d.ticker != nil {
		return
	}
	d.ticker = time.NewTicker(d.Interval)
}

// Pause stops delivering ticks until Resume is called.
func (d *Default) Pause() {
	if d.ticker == nil {
		return
	}
	d.ticker.Stop()
	d.ticker = nil
}

// Stop releases the ticker permanently.
func (d *Default) Stop() {
	d.Pause()
}
