// Package config loads the accountant daemon's startup configuration
// (spec.md section 9's design note: configuration is loaded once into an
// immutable value and threaded through scanners and DAOs, never read as
// mutable global state).
package config

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/masq-node/accountant/accountant/threshold"
)

// Config is the accountant daemon's complete startup configuration.
type Config struct {
	DataDir string `long:"datadir" description:"Directory holding the accountant's sqlite database file" default:"./data"`

	PostgresDSN string `long:"postgres-dsn" description:"Optional Postgres connection string; when set, the accountant persists to Postgres instead of sqlite"`

	ScanIntervalSec          int64 `long:"scan-interval-sec" description:"Seconds between accountant scan cycles" default:"900"`
	MaxPendingIntervalSec    int64 `long:"max-pending-interval-sec" description:"Seconds a submitted transaction may go without a receipt before being marked failed" default:"1800"`
	TxCancellationRetrySec   int64 `long:"tx-cancellation-retry-sec" description:"Seconds before retrying a failed pending-transaction cancellation" default:"10"`
	Crashable                bool  `long:"crashable" description:"Allow a CrashRequest{actor=ACCOUNTANT} UI message to panic the actor; for integration tests only"`

	MaturityThresholdSec     int64 `long:"maturity-threshold-sec" description:"Debt age below which a balance is never payable" default:"86400"`
	PaymentGracePeriodSec    int64 `long:"payment-grace-period-sec" description:"Grace period before a delinquent receivable is banned" default:"86400"`
	PermanentDebtAllowedGwei int64 `long:"permanent-debt-allowed-gwei" description:"Balance floor, in gwei, below which a debt never becomes delinquent" default:"10000"`
	DebtThresholdGwei        int64 `long:"debt-threshold-gwei" description:"Balance, in gwei, at which a fresh debt becomes payable" default:"1000000"`
	ThresholdIntervalSec     int64 `long:"threshold-interval-sec" description:"Seconds over which the payment threshold curve interpolates down to the permanent-debt floor" default:"2592000"`
	UnbanBelowGwei           int64 `long:"unban-below-gwei" description:"Balance, in gwei, below which a banned wallet is unbanned" default:"100000"`

	BootstrapPeers []string `long:"bootstrap-peer" description:"Address of a bootstrap peer to track connection progress for (repeatable)"`

	NeighborhoodStatePath string `long:"neighborhood-state" description:"Path to the bbolt file persisting connection progress across restarts; empty disables persistence"`

	PrometheusListenAddr string `long:"prometheus-listen-addr" description:"Address to serve Prometheus metrics on; empty disables the metrics server" default:":9090"`
}

// Load parses args (typically os.Args[1:]) into a Config, applying
// defaults for anything unset.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	parser := flags.NewParser(cfg, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil, err
		}
		return nil, fmt.Errorf("config: parsing flags: %w", err)
	}

	return cfg, nil
}

// PaymentThresholds builds the threshold.PaymentThresholds value the
// accountant package consumes from this config's flat flag fields.
func (c *Config) PaymentThresholds() threshold.PaymentThresholds {
	return threshold.PaymentThresholds{
		MaturityThresholdSec:     c.MaturityThresholdSec,
		PaymentGracePeriodSec:    c.PaymentGracePeriodSec,
		PermanentDebtAllowedGwei: c.PermanentDebtAllowedGwei,
		DebtThresholdGwei:        c.DebtThresholdGwei,
		ThresholdIntervalSec:     c.ThresholdIntervalSec,
		UnbanBelowGwei:           c.UnbanBelowGwei,
	}
}

// ScanInterval returns ScanIntervalSec as a time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSec) * time.Second
}

// MaxPendingInterval returns MaxPendingIntervalSec as a time.Duration.
func (c *Config) MaxPendingInterval() time.Duration {
	return time.Duration(c.MaxPendingIntervalSec) * time.Second
}

// TxCancellationRetryEvery returns TxCancellationRetrySec as a time.Duration.
func (c *Config) TxCancellationRetryEvery() time.Duration {
	return time.Duration(c.TxCancellationRetrySec) * time.Second
}
