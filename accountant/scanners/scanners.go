// Package scanners implements the three periodic scan routines the
// Accountant actor drives each tick: payable, pending payable, and
// receivable (spec.md section 4.4). Each scanner is invoked synchronously
// from the actor's own goroutine — there is no per-scan watcher
// goroutine, unlike the teacher's breachArbiter.contractObserver, which
// spawns one observer per channel. spec.md section 5 mandates a single-
// threaded cooperative actor, so the fan-out the teacher uses to watch
// many channels concurrently is collapsed here into one batched call per
// tick; BeginScan/FinishScan still bracket each call the way the
// teacher's observer loop brackets a contractObserver pass, for the same
// observability reason (log what started, log what it found).
package scanners

import (
	"fmt"
	"time"
)

// Scanner is satisfied by every scan routine the Accountant drives.
type Scanner interface {
	// BeginScan is called once per tick before the scan body runs; it
	// exists as a named hook so every scanner logs a consistent
	// "scan starting" line, matching the observability contract in
	// spec.md section 4.4 point 5.
	BeginScan(now time.Time)
	// FinishScan is called once the scan body returns, successful or
	// not, and logs a one-line summary.
	FinishScan(summary string, err error)
}

// baseScanner gives concrete scanners BeginScan/FinishScan for free.
type baseScanner struct {
	name string
}

func (b baseScanner) BeginScan(now time.Time) {
	log.Debugf("%s scan starting at %s", b.name, now.Format(time.RFC3339))
}

func (b baseScanner) FinishScan(summary string, err error) {
	if err != nil {
		log.Errorf("%s scan failed: %v", b.name, err)
		return
	}
	log.Infof("%s scan finished: %s", b.name, summary)
}

func summarizeCount(kind string, n int) string {
	return fmt.Sprintf("%d %s", n, kind)
}

// NullScanner satisfies Scanner by doing nothing and reporting
// "disabled". The Accountant's scan cycle does not use it: its scanner
// fields are the concrete PayableScanner, PendingPayableScanner and
// ReceivableScanner types.
type NullScanner struct {
	baseScanner
}

// NewNullScanner builds a NullScanner identifying itself as name in logs.
func NewNullScanner(name string) *NullScanner {
	return &NullScanner{baseScanner: baseScanner{name: name}}
}

// Scan does nothing and always succeeds.
func (s *NullScanner) Scan(now time.Time) (string, error) {
	s.BeginScan(now)
	s.FinishScan("disabled", nil)
	return "disabled", nil
}
