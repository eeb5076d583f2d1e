// Package logconfig centralizes the btclog subsystem wiring used by every
// package in this module, mirroring lnd's per-package log.go / UseLogger
// convention: each package declares its own package-level logger tagged
// with a short subsystem code, and the daemon entrypoint rewires all of
// them to a shared backend once the log file and level are known from
// config.
package logconfig

import (
	"sync"

	"github.com/btcsuite/btclog"
)

// PackageLogger is a thin wrapper around btclog.Logger so the logger can be
// replaced in place (once the root backend is ready) without every package
// that captured a `var log = ...` needing a setter call of its own.
type PackageLogger struct {
	btclog.Logger
	subsystem string
}

var (
	mu          sync.Mutex
	allLoggers  []*PackageLogger
)

// NewPackageLogger creates the logger for the given subsystem tag, e.g.
// "ACCT", "SCAN", "ADJU", "BIGI", "IPCO", "NBHD". Until SetBackend is
// called it discards everything, so packages can log from init() safely.
func NewPackageLogger(subsystem string) *PackageLogger {
	mu.Lock()
	defer mu.Unlock()

	l := &PackageLogger{
		Logger:    btclog.Disabled,
		subsystem: subsystem,
	}
	allLoggers = append(allLoggers, l)
	return l
}

// SetBackend rewires every previously-created subsystem logger to backend
// at the given level. No package in this module calls it, so every
// logger stays disabled unless an embedding program does.
func SetBackend(backend *btclog.Backend, level btclog.Level) {
	mu.Lock()
	defer mu.Unlock()

	for _, l := range allLoggers {
		sub := backend.Logger(l.subsystem)
		sub.SetLevel(level)
		l.Logger = sub
	}
}
