// Command accountantd runs the MASQ Accountant as a standalone daemon: it
// wires the sqlite- or Postgres-backed DAOs, the payment adjuster, and
// the three scanners into one Accountant actor and keeps it running
// until asked to shut down.
package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/masq-node/accountant/accountant"
	"github.com/masq-node/accountant/accountant/adjustment"
	"github.com/masq-node/accountant/accountant/bigint"
	"github.com/masq-node/accountant/accountant/ledger"
	"github.com/masq-node/accountant/config"
	"github.com/masq-node/accountant/neighborhood"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "accountantd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	payableDao := ledger.NewPayableDao(db)
	receivableDao := ledger.NewReceivableDao(db)
	pendingPayableDao := ledger.NewPendingPayableDao(db)
	bannedDao := ledger.NewBannedDao(db)

	thresholds := cfg.PaymentThresholds()
	adjuster := adjustment.NewAdjuster(thresholds)
	bridge := newNoopBridge()

	acc := accountant.New(
		accountant.Config{
			PaymentThresholds:        thresholds,
			ScanInterval:             cfg.ScanInterval(),
			MaxPendingInterval:       cfg.MaxPendingInterval(),
			TxCancellationRetryEvery: cfg.TxCancellationRetryEvery(),
			Crashable:                cfg.Crashable,
		},
		payableDao, receivableDao, pendingPayableDao, bannedDao,
		bridge, adjuster,
	)

	if cfg.PrometheusListenAddr != "" {
		metrics := accountant.NewMetrics(prometheus.DefaultRegisterer)
		acc.SetMetrics(metrics)
		serveMetrics(cfg.PrometheusListenAddr)
	}

	if len(cfg.BootstrapPeers) > 0 {
		if _, err := openNeighborhoodStatus(cfg); err != nil {
			return fmt.Errorf("initializing neighborhood status: %w", err)
		}
	}

	if err := acc.Start(); err != nil {
		return fmt.Errorf("starting accountant: %w", err)
	}
	acc.Dispatch(ledger.StartMessage{})

	waitForShutdown()

	return acc.Stop()
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	if cfg.PostgresDSN != "" {
		return bigint.OpenPostgres(cfg.PostgresDSN)
	}
	return bigint.Open(cfg.DataDir)
}

func openNeighborhoodStatus(cfg *config.Config) (*neighborhood.OverallConnectionStatus, error) {
	var store neighborhood.Store
	if cfg.NeighborhoodStatePath != "" {
		boltStore, err := neighborhood.OpenBoltStore(cfg.NeighborhoodStatePath)
		if err != nil {
			return nil, err
		}
		store = boltStore
	}
	return neighborhood.New(cfg.BootstrapPeers, store), nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			fmt.Fprintf(os.Stderr, "accountantd: metrics server: %v\n", err)
		}
	}()
}

func waitForShutdown() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
}
