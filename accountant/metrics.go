package accountant

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the accountant's prometheus counters. The Accountant
// increments ScansRun once per scanner on every scan cycle;
// PaymentsAdjusted, WalletsBanned and WalletsUnbanned are registered but
// nothing in this module increments them. Registered lazily by
// NewMetrics so tests that never call it don't collide on prometheus's
// default registry.
type Metrics struct {
	ScansRun         *prometheus.CounterVec
	PaymentsAdjusted prometheus.Counter
	WalletsBanned    prometheus.Counter
	WalletsUnbanned  prometheus.Counter
}

// NewMetrics registers and returns a fresh Metrics set against registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScansRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "masq_accountant",
			Name:      "scans_run_total",
			Help:      "Number of scan passes run, labeled by scanner.",
		}, []string{"scanner"}),
		PaymentsAdjusted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "masq_accountant",
			Name:      "payments_adjusted_total",
			Help:      "Number of payable accounts whose proposed payment was shrunk by the adjuster.",
		}),
		WalletsBanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "masq_accountant",
			Name:      "wallets_banned_total",
			Help:      "Number of wallets newly banned for delinquent debt.",
		}),
		WalletsUnbanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "masq_accountant",
			Name:      "wallets_unbanned_total",
			Help:      "Number of wallets unbanned after paying down delinquent debt.",
		}),
	}

	registerer.MustRegister(m.ScansRun, m.PaymentsAdjusted, m.WalletsBanned, m.WalletsUnbanned)
	return m
}
