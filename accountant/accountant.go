package accountant

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-errors/errors"

	"github.com/masq-node/accountant/accountant/bigint"
	"github.com/masq-node/accountant/accountant/ledger"
	"github.com/masq-node/accountant/accountant/scanners"
	"github.com/masq-node/accountant/accountant/threshold"
	"github.com/masq-node/accountant/clock"
	"github.com/masq-node/accountant/queue"
	"github.com/masq-node/accountant/ticker"
	"github.com/masq-node/accountant/wallet"
)

// Config is the Accountant's immutable startup configuration.
type Config struct {
	PaymentThresholds        threshold.PaymentThresholds
	ScanInterval             time.Duration
	MaxPendingInterval       time.Duration
	TxCancellationRetryEvery time.Duration
	Crashable                bool
}

// defaultTxCancellationRetry is the interval at which a failed pending
// transaction is retried before being marked terminally failed (spec.md
// section 8 seed scenario 6).
const defaultTxCancellationRetry = 10 * time.Second

// defaultMaxPendingInterval bounds how long a submitted transaction can
// go without a receipt before the pending payable scanner gives up on it
// automatically (spec.md section 4.4).
const defaultMaxPendingInterval = 30 * time.Minute

// Accountant is the long-running actor described in spec.md section 1: it
// tracks payable/receivable debt, decides which debts are due, adjusts
// payment batches to what the wallet can afford, reconciles pending
// on-chain transactions, and bans delinquent peers. One goroutine
// processes every inbound message and every scan tick in arrival order;
// this mirrors the single-select dispatch loop of the teacher's
// htlcswitch.Switch.htlcForwarder.
type Accountant struct {
	cfg Config

	payableDao        ledger.PayableDao
	receivableDao     ledger.ReceivableDao
	pendingPayableDao ledger.PendingPayableDao

	payableScanner        *scanners.PayableScanner
	pendingPayableScanner *scanners.PendingPayableScanner
	receivableScanner     *scanners.ReceivableScanner

	metrics *Metrics

	clock clock.Clock

	addresses   wallet.Addresses
	addressesMu sync.RWMutex

	started int32
	stopped int32
	wg      sync.WaitGroup
	quit    chan struct{}

	mailbox *queue.ConcurrentQueue
	queries chan queryMsg

	newTicker func(time.Duration) ticker.Ticker

	// cancelRetries tracks which pending payable rows have already had
	// their one allowed cancellation retry scheduled (spec.md section
	// 4.6 cancel-failed-transaction retry, seed scenario 6). Only ever
	// touched from the dispatch goroutine.
	cancelRetries map[int64]struct{}
}

type queryMsg struct {
	request ledger.UiFinancialsRequest
	reply   chan uiFinancialsResult
}

type uiFinancialsResult struct {
	response *ledger.UiFinancialsResponse
	err      error
}

// New builds an Accountant ready to Start. bridge and adjuster may be nil
// during early startup (before BindMessage/StartMessage arrive in tests
// that only exercise DAOs); the payable scanner simply skips the
// send-payments step when either is nil.
func New(cfg Config, payableDao ledger.PayableDao, receivableDao ledger.ReceivableDao,
	pendingPayableDao ledger.PendingPayableDao, bannedDao ledger.BannedDao,
	bridge ledger.BlockchainBridge, adjuster ledger.PaymentAdjuster) *Accountant {

	if cfg.TxCancellationRetryEvery == 0 {
		cfg.TxCancellationRetryEvery = defaultTxCancellationRetry
	}
	if cfg.MaxPendingInterval == 0 {
		cfg.MaxPendingInterval = defaultMaxPendingInterval
	}

	return &Accountant{
		cfg:                   cfg,
		payableDao:            payableDao,
		receivableDao:         receivableDao,
		pendingPayableDao:     pendingPayableDao,
		payableScanner:        scanners.NewPayableScanner(payableDao, cfg.PaymentThresholds, adjuster, bridge),
		pendingPayableScanner: scanners.NewPendingPayableScanner(pendingPayableDao, bridge, cfg.MaxPendingInterval),
		receivableScanner:     scanners.NewReceivableScanner(receivableDao, bannedDao, cfg.PaymentThresholds),
		clock:                 clock.NewDefaultClock(),
		quit:                  make(chan struct{}),
		mailbox:               queue.NewConcurrentQueue(64),
		queries:               make(chan queryMsg),
		cancelRetries:         make(map[int64]struct{}),
		newTicker: func(interval time.Duration) ticker.Ticker {
			return ticker.New(interval)
		},
	}
}

// SetClock overrides the actor's time source. Tests pass a *clock.TestClock
// before Start so scan cadence and age calculations can be driven by hand;
// production code leaves the default *clock.DefaultClock in place.
func (a *Accountant) SetClock(c clock.Clock) {
	a.clock = c
}

// SetTickerFactory overrides how the actor's scan/retry tickers are built.
// Tests call this before Start with a factory returning *ticker.Mock so a
// scan cycle can be driven by hand instead of waiting on a real interval.
func (a *Accountant) SetTickerFactory(f func(time.Duration) ticker.Ticker) {
	a.newTicker = f
}

// Start launches the actor's dispatch goroutine. Scanners do not run
// here: every scanner fires once when a StartMessage is handled
// (spec.md section 4.4 "Start message semantics"), and the periodic
// tickers drive later scans.
func (a *Accountant) Start() error {
	if !atomic.CompareAndSwapInt32(&a.started, 0, 1) {
		log.Warn("accountant already started")
		return errors.New("accountant already started")
	}

	log.Infof("starting accountant")

	a.mailbox.Start()

	a.wg.Add(1)
	go a.run()

	return nil
}

// Stop signals the dispatch goroutine to exit and waits for it.
func (a *Accountant) Stop() error {
	if !atomic.CompareAndSwapInt32(&a.stopped, 0, 1) {
		log.Warn("accountant already stopped")
		return errors.New("accountant already stopped")
	}

	log.Infof("accountant shutting down")

	close(a.quit)
	a.wg.Wait()
	a.mailbox.Stop()

	return nil
}

// Dispatch enqueues a fire-and-forget message (every message type in
// this package's ledger import except UiFinancialsRequest, which goes
// through QueryUiFinancials for its reply). The mailbox's
// unbounded relay means Dispatch never blocks a caller on a busy actor.
func (a *Accountant) Dispatch(msg interface{}) {
	select {
	case a.mailbox.ChanIn() <- msg:
	case <-a.quit:
	}
}

// QueryUiFinancials answers a financials snapshot request synchronously,
// routed through the actor's own goroutine so it never reads DAO state
// concurrently with a scan cycle. Panics if any returned row would
// violate the dust-floor invariant — that would mean a DAO query
// constructed wrong, not a runtime condition a caller should handle
// (spec.md section 3).
func (a *Accountant) QueryUiFinancials(req ledger.UiFinancialsRequest) (*ledger.UiFinancialsResponse, error) {
	reply := make(chan uiFinancialsResult, 1)
	select {
	case a.queries <- queryMsg{request: req, reply: reply}:
	case <-a.quit:
		return nil, errors.New("accountant: stopped")
	}

	select {
	case result := <-reply:
		return result.response, result.err
	case <-a.quit:
		return nil, errors.New("accountant: stopped")
	}
}

// SetMetrics attaches prometheus counters; the scan cycle increments
// ScansRun. Optional: an Accountant with no metrics set simply skips
// recording them.
func (a *Accountant) SetMetrics(m *Metrics) {
	a.metrics = m
}

// Crash panics the actor's dispatch goroutine if actor names this
// Accountant and it was configured crashable; otherwise it's a no-op
// (spec.md section 9 crash-test contract).
func (a *Accountant) Crash(actor string) {
	if actor != ledger.AccountantActorName {
		return
	}
	a.Dispatch(crashSignal{})
}

type crashSignal struct{}

func (a *Accountant) run() {
	defer a.wg.Done()

	scanTicker := a.newTicker(a.cfg.ScanInterval)
	defer scanTicker.Stop()

	retryTicker := a.newTicker(a.cfg.TxCancellationRetryEvery)
	defer retryTicker.Stop()

	for {
		select {
		case msg := <-a.mailbox.ChanOut():
			a.handle(msg)

		case q := <-a.queries:
			resp, err := a.buildUiFinancials(q.request)
			q.reply <- uiFinancialsResult{response: resp, err: err}

		case <-scanTicker.Ticks():
			a.runScanCycle()

		case <-retryTicker.Ticks():
			a.pendingPayableScanner.Scan(a.clock.Now())

		case <-a.quit:
			return
		}
	}
}

func (a *Accountant) handle(payload interface{}) {
	switch msg := payload.(type) {
	case ledger.BindMessage:
		a.addressesMu.Lock()
		a.addresses = msg.Addresses
		a.addressesMu.Unlock()

	case ledger.StartMessage:
		log.Infof("accountant scan cycle armed")
		a.runScanCycle()

	case ledger.ReportRoutingServiceProvided:
		a.recordReceivable(msg.Peer, msg.Timestamp, ledger.ChargeWei(msg.ServiceRateWei, msg.ByteRateWei, msg.PayloadSizeByte))

	case ledger.ReportExitServiceProvided:
		a.recordReceivable(msg.Peer, msg.Timestamp, ledger.ChargeWei(msg.ServiceRateWei, msg.ByteRateWei, msg.PayloadSizeByte))

	case ledger.ReportRoutingServiceConsumed:
		a.recordPayable(msg.Peer, msg.Timestamp, ledger.ChargeWei(msg.ServiceRateWei, msg.ByteRateWei, msg.PayloadSizeByte))

	case ledger.ReportExitServiceConsumed:
		a.recordPayable(msg.Peer, msg.Timestamp, ledger.ChargeWei(msg.ServiceRateWei, msg.ByteRateWei, msg.PayloadSizeByte))

	case ledger.SentPayments:
		a.recordSentPayments(msg.Payments)

	case ledger.ReceivedPayments:
		if err := a.receivableDao.ReceivedPayments(a.clock.Now(), msg.Payments); err != nil {
			log.Errorf("accountant: recording received payments: %v", err)
		}

	case ledger.ConfirmPendingTransaction:
		a.confirmPending(msg)

	case ledger.CancelFailedPendingTransaction:
		a.cancelPending(msg)

	case ledger.CrashRequest:
		a.Crash(msg.Actor)

	case crashSignal:
		if a.cfg.Crashable {
			panic("accountant: crash requested by operator")
		}

	default:
		log.Warnf("accountant: unrecognized message type %T", payload)
	}
}

func (a *Accountant) recordReceivable(peer wallet.Wallet, ts time.Time, chargeWei *big.Int) {
	if !bigint.Fits(chargeWei) {
		log.Errorf("accountant: receivable charge %s wei for %s overflowed the storable range; service delivered but unbilled", chargeWei.String(), peer.Display())
		return
	}
	if err := a.receivableDao.MoreMoneyReceivable(ts, peer, chargeWei); err != nil {
		log.Errorf("accountant: recording receivable for %s: %v", peer.Display(), err)
	}
}

func (a *Accountant) recordPayable(peer wallet.Wallet, ts time.Time, chargeWei *big.Int) {
	if !bigint.Fits(chargeWei) {
		log.Errorf("accountant: payable charge %s wei for %s overflowed the storable range; service consumed but unrecorded", chargeWei.String(), peer.Display())
		return
	}
	if err := a.payableDao.MoreMoneyPayable(ts, peer, chargeWei); err != nil {
		log.Errorf("accountant: recording payable for %s: %v", peer.Display(), err)
	}
}

func (a *Accountant) recordSentPayments(payments []ledger.SentPayment) {
	for _, p := range payments {
		rowID, err := a.pendingPayableDao.InsertFingerprint(p.Timestamp, p.TxHash, p.AmountWei, p.Nonce)
		if err != nil {
			log.Errorf("accountant: inserting pending payable fingerprint for %s: %v", p.TxHash, err)
			continue
		}
		if err := a.payableDao.MarkPendingPayable(p.Wallet, rowID); err != nil {
			log.Errorf("accountant: marking payable pending for %s: %v", p.Wallet.Display(), err)
		}
	}
}

// confirmPending handles the sole DAO failure spec.md section 7 declares
// fatal: once TransactionConfirmed fails, the local ledger's view has
// permanently diverged from the chain, so there is nothing safe left to
// log-and-continue from.
func (a *Accountant) confirmPending(msg ledger.ConfirmPendingTransaction) {
	fp := ledger.PendingPayableFingerprint{RowID: msg.RowID, AmountWei: msg.AmountWei}
	if err := a.payableDao.TransactionConfirmed(fp); err != nil {
		panic(fmt.Sprintf("accountant: transaction_confirmed failed for pending payable row %d, amount %s wei: local ledger has permanently diverged from the chain: %v", msg.RowID, msg.AmountWei.String(), err))
	}
	if err := a.pendingPayableDao.DeleteFingerprint(msg.RowID); err != nil {
		log.Errorf("accountant: deleting confirmed fingerprint row %d: %v", msg.RowID, err)
	}
}

// cancelPending implements spec.md section 4.6's cancel-failed-transaction
// retry (seed scenario 6): the first DAO failure schedules exactly one
// retry after cfg.TxCancellationRetryEvery; a second failure is logged at
// ERROR naming the wallet, amount, and transaction id and is not retried
// again.
func (a *Accountant) cancelPending(msg ledger.CancelFailedPendingTransaction) {
	fp := ledger.PendingPayableFingerprint{RowID: msg.RowID}
	err := a.payableDao.TransactionCanceled(fp)
	if err == nil {
		delete(a.cancelRetries, msg.RowID)
		if err := a.pendingPayableDao.MarkFailed(msg.RowID, ledger.ProcessErrorTimedOut); err != nil {
			log.Errorf("accountant: marking row %d terminally failed: %v", msg.RowID, err)
		}
		return
	}

	if _, alreadyRetried := a.cancelRetries[msg.RowID]; alreadyRetried {
		delete(a.cancelRetries, msg.RowID)
		log.Errorf("accountant: transaction cancel failed twice for wallet %s, amount %s wei, tx %s (row %d); operator action required: %v",
			msg.Wallet.Display(), msg.AmountWei.String(), msg.TxHash, msg.RowID, err)
		return
	}

	a.cancelRetries[msg.RowID] = struct{}{}
	log.Warnf("accountant: transaction cancel failed for row %d, retrying in %s: %v", msg.RowID, a.cfg.TxCancellationRetryEvery, err)
	retryMsg := msg
	go func() {
		<-a.clock.TickAfter(a.cfg.TxCancellationRetryEvery)
		a.Dispatch(retryMsg)
	}()
}

// runScanCycle drives all three scanners once (spec.md section 4.4).
func (a *Accountant) runScanCycle() {
	now := a.clock.Now()

	if _, err := a.payableScanner.Scan(context.Background(), now); err != nil {
		log.Errorf("accountant: payable scan: %v", err)
	}
	if _, err := a.pendingPayableScanner.Scan(now); err != nil {
		log.Errorf("accountant: pending payable scan: %v", err)
	}
	if _, err := a.receivableScanner.Scan(now); err != nil {
		log.Errorf("accountant: receivable scan: %v", err)
	}

	if a.metrics != nil {
		a.metrics.ScansRun.WithLabelValues("payable").Inc()
		a.metrics.ScansRun.WithLabelValues("pending_payable").Inc()
		a.metrics.ScansRun.WithLabelValues("receivable").Inc()
	}
}

func (a *Accountant) buildUiFinancials(req ledger.UiFinancialsRequest) (*ledger.UiFinancialsResponse, error) {
	minAmount := req.MinAmountWei
	if minAmount == nil {
		minAmount = ledger.OneGweiWei
	}
	now := a.clock.Now()

	topPayables, err := a.payableDao.TopPayables(req.TopN, minAmount, req.MinAgeSec, now)
	if err != nil {
		return nil, fmt.Errorf("querying top payables: %w", err)
	}
	topReceivables, err := a.receivableDao.TopReceivables(req.TopN, minAmount, now)
	if err != nil {
		return nil, fmt.Errorf("querying top receivables: %w", err)
	}
	for _, p := range topPayables {
		if !ledger.AboveDustFloor(p.BalanceWei) {
			panic(fmt.Sprintf("accountant: sub-gwei payable row surfaced for %s; DAO query contract violated", p.Wallet.Display()))
		}
	}
	for _, r := range topReceivables {
		if !ledger.AboveDustFloor(r.BalanceWei) {
			panic(fmt.Sprintf("accountant: sub-gwei receivable row surfaced for %s; DAO query contract violated", r.Wallet.Display()))
		}
	}
	totalPayable, err := a.payableDao.TotalPayableWei()
	if err != nil {
		return nil, fmt.Errorf("summing payable: %w", err)
	}
	totalReceivable, err := a.receivableDao.TotalReceivableWei()
	if err != nil {
		return nil, fmt.Errorf("summing receivable: %w", err)
	}

	return &ledger.UiFinancialsResponse{
		TotalPayableWei:    totalPayable,
		TotalReceivableWei: totalReceivable,
		TopPayables:        topPayables,
		TopReceivables:     topReceivables,
	}, nil
}
