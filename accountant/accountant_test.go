package accountant

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masq-node/accountant/accountant/ledger"
	"github.com/masq-node/accountant/accountant/threshold"
	"github.com/masq-node/accountant/clock"
	"github.com/masq-node/accountant/ticker"
	"github.com/masq-node/accountant/wallet"
)

type fakePayableDao struct {
	moreMoneyCalls      int
	nonPendingScanCalls int
	totalWei            *big.Int

	transactionConfirmedErr  error
	cancelErrs               []error
	transactionCanceledCalls int
}

func (f *fakePayableDao) MoreMoneyPayable(now time.Time, w wallet.Wallet, chargeWei *big.Int) error {
	f.moreMoneyCalls++
	return nil
}
func (f *fakePayableDao) NonPendingPayables() ([]ledger.PayableAccount, error) {
	f.nonPendingScanCalls++
	return nil, nil
}
func (f *fakePayableDao) MarkPendingPayable(w wallet.Wallet, pendingRowID int64) error { return nil }
func (f *fakePayableDao) TransactionConfirmed(fp ledger.PendingPayableFingerprint) error {
	return f.transactionConfirmedErr
}
func (f *fakePayableDao) TransactionCanceled(fp ledger.PendingPayableFingerprint) error {
	idx := f.transactionCanceledCalls
	f.transactionCanceledCalls++
	if idx < len(f.cancelErrs) {
		return f.cancelErrs[idx]
	}
	return nil
}
func (f *fakePayableDao) TopPayables(n int, minBalanceWei *big.Int, maxAgeSec int64, now time.Time) ([]ledger.PayableAccount, error) {
	return nil, nil
}
func (f *fakePayableDao) TotalPayableWei() (*big.Int, error) {
	if f.totalWei != nil {
		return f.totalWei, nil
	}
	return big.NewInt(0), nil
}

type fakeReceivableDao struct {
	moreMoneyCalls int
}

func (f *fakeReceivableDao) MoreMoneyReceivable(now time.Time, w wallet.Wallet, chargeWei *big.Int) error {
	f.moreMoneyCalls++
	return nil
}
func (f *fakeReceivableDao) ReceivedPayments(now time.Time, payments []ledger.ReceivedPayment) error {
	return nil
}
func (f *fakeReceivableDao) NewDelinquencies(now time.Time, t threshold.PaymentThresholds) ([]ledger.ReceivableAccount, error) {
	return nil, nil
}
func (f *fakeReceivableDao) PaidDelinquencies(t threshold.PaymentThresholds) ([]ledger.ReceivableAccount, error) {
	return nil, nil
}
func (f *fakeReceivableDao) TopReceivables(n int, minBalanceWei *big.Int, now time.Time) ([]ledger.ReceivableAccount, error) {
	return nil, nil
}
func (f *fakeReceivableDao) TotalReceivableWei() (*big.Int, error) { return big.NewInt(0), nil }

type fakePendingPayableDao struct {
	markFailedCalls int
}

func (f *fakePendingPayableDao) InsertFingerprint(now time.Time, hash string, amountWei *big.Int, nonce uint64) (int64, error) {
	return 1, nil
}
func (f *fakePendingPayableDao) FingerprintsToScan() ([]ledger.PendingPayableFingerprint, error) {
	return nil, nil
}
func (f *fakePendingPayableDao) IncrementAttempt(rowID int64) error { return nil }
func (f *fakePendingPayableDao) MarkFailed(rowID int64, kind ledger.ProcessErrorKind) error {
	f.markFailedCalls++
	return nil
}
func (f *fakePendingPayableDao) DeleteFingerprint(rowID int64) error { return nil }

type fakeBannedDao struct{}

func (f *fakeBannedDao) Ban(w wallet.Wallet, at time.Time) error { return nil }
func (f *fakeBannedDao) Unban(w wallet.Wallet) error             { return nil }
func (f *fakeBannedDao) IsBanned(w wallet.Wallet) (bool, error)  { return false, nil }
func (f *fakeBannedDao) AllBanned() ([]wallet.Wallet, error)     { return nil, nil }

type fakeBridge struct{}

func (f *fakeBridge) SendPayments(payments []ledger.SentPayment) error { return nil }
func (f *fakeBridge) RequestReceipts(fingerprints []ledger.PendingPayableFingerprint) error {
	return nil
}
func (f *fakeBridge) ConsumingWalletBalances() (ledger.ConsumingWalletBalances, error) {
	return ledger.ConsumingWalletBalances{ServiceFeeBalanceWei: big.NewInt(0)}, nil
}

type fakeAdjuster struct{}

func (f *fakeAdjuster) AdjustPayments(ctx context.Context, qualified []ledger.PayableAccount, balances ledger.ConsumingWalletBalances, now time.Time) ([]ledger.PayableAccount, error) {
	return qualified, nil
}

func newTestAccountant(t *testing.T, crashable bool) (*Accountant, *fakePayableDao, *fakeReceivableDao, *fakePendingPayableDao) {
	t.Helper()
	payableDao := &fakePayableDao{}
	receivableDao := &fakeReceivableDao{}
	pendingPayableDao := &fakePendingPayableDao{}

	acc := New(
		Config{
			PaymentThresholds:        threshold.PaymentThresholds{},
			ScanInterval:             time.Hour,
			TxCancellationRetryEvery: time.Millisecond,
			Crashable:                crashable,
		},
		payableDao, receivableDao, pendingPayableDao, &fakeBannedDao{},
		&fakeBridge{}, &fakeAdjuster{},
	)
	acc.SetClock(clock.NewTestClock(time.Now()))
	return acc, payableDao, receivableDao, pendingPayableDao
}

func TestDispatchRecordsReceivableCharge(t *testing.T) {
	acc, _, receivableDao, _ := newTestAccountant(t, false)
	require.NoError(t, acc.Start())
	defer acc.Stop()

	var raw [20]byte
	raw[19] = 7
	acc.Dispatch(ledger.ReportRoutingServiceProvided{
		Peer:            wallet.New(raw),
		Timestamp:       time.Now(),
		ServiceRateWei:  big.NewInt(100),
		ByteRateWei:     big.NewInt(1),
		PayloadSizeByte: 10,
	})

	require.Eventually(t, func() bool {
		return receivableDao.moreMoneyCalls == 1
	}, time.Second, time.Millisecond)
}

func TestQueryUiFinancialsReturnsTotals(t *testing.T) {
	acc, payableDao, _, _ := newTestAccountant(t, false)
	payableDao.totalWei = big.NewInt(5000)
	require.NoError(t, acc.Start())
	defer acc.Stop()

	resp, err := acc.QueryUiFinancials(ledger.UiFinancialsRequest{TopN: 5})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5000), resp.TotalPayableWei)
}

func TestCrashIgnoredWhenNotCrashable(t *testing.T) {
	acc, _, _, _ := newTestAccountant(t, false)
	require.NoError(t, acc.Start())
	defer acc.Stop()

	acc.Crash(ledger.AccountantActorName)

	// No panic should reach here; a follow-up query still succeeds,
	// proving the actor's dispatch goroutine survived the crash signal.
	_, err := acc.QueryUiFinancials(ledger.UiFinancialsRequest{TopN: 1})
	assert.NoError(t, err)
}

func TestCrashIgnoresUnrelatedActorName(t *testing.T) {
	acc, _, _, _ := newTestAccountant(t, true)
	require.NoError(t, acc.Start())
	defer acc.Stop()

	acc.Crash("SOME_OTHER_ACTOR")

	_, err := acc.QueryUiFinancials(ledger.UiFinancialsRequest{TopN: 1})
	assert.NoError(t, err)
}

func TestStartTwiceReturnsError(t *testing.T) {
	acc, _, _, _ := newTestAccountant(t, false)
	require.NoError(t, acc.Start())
	defer acc.Stop()

	assert.Error(t, acc.Start())
}

func TestScanTickerFiresScanCycle(t *testing.T) {
	acc, payableDao, _, _ := newTestAccountant(t, false)

	var mocks []*ticker.Mock
	acc.SetTickerFactory(func(time.Duration) ticker.Ticker {
		m := ticker.NewMock()
		mocks = append(mocks, m)
		return m
	})

	require.NoError(t, acc.Start())
	defer acc.Stop()
	require.Len(t, mocks, 2)

	scanTicker := mocks[0]
	before := payableDao.nonPendingScanCalls
	scanTicker.Tick(time.Now())

	require.Eventually(t, func() bool {
		return payableDao.nonPendingScanCalls > before
	}, time.Second, time.Millisecond, "scan tick never ran the payable scanner")
}

func TestConfirmPendingTransactionFailureIsFatal(t *testing.T) {
	acc, payableDao, _, _ := newTestAccountant(t, false)
	payableDao.transactionConfirmedErr = errors.New("database gone")

	assert.Panics(t, func() {
		acc.confirmPending(ledger.ConfirmPendingTransaction{RowID: 42, AmountWei: big.NewInt(100)})
	}, "a failed transaction_confirmed must be fatal, not swallowed")
}

func TestCancelPendingRetriesOnceThenSucceeds(t *testing.T) {
	acc, payableDao, _, pendingPayableDao := newTestAccountant(t, false)
	payableDao.cancelErrs = []error{errors.New("transient failure")}

	require.NoError(t, acc.Start())
	defer acc.Stop()

	var raw [20]byte
	raw[19] = 9
	acc.Dispatch(ledger.CancelFailedPendingTransaction{
		RowID:     7,
		Wallet:    wallet.New(raw),
		AmountWei: big.NewInt(500),
		TxHash:    "0xabc",
	})

	require.Eventually(t, func() bool {
		return payableDao.transactionCanceledCalls == 2
	}, time.Second, time.Millisecond, "expected exactly one retry")
	require.Eventually(t, func() bool {
		return pendingPayableDao.markFailedCalls == 1
	}, time.Second, time.Millisecond, "retry should have succeeded and marked the fingerprint failed")
}

func TestCancelPendingFailsTwiceLogsAndStopsRetrying(t *testing.T) {
	acc, payableDao, _, pendingPayableDao := newTestAccountant(t, false)
	payableDao.cancelErrs = []error{errors.New("first failure"), errors.New("second failure")}

	require.NoError(t, acc.Start())
	defer acc.Stop()

	acc.Dispatch(ledger.CancelFailedPendingTransaction{
		RowID:     8,
		AmountWei: big.NewInt(1),
		TxHash:    "0xdef",
	})

	require.Eventually(t, func() bool {
		return payableDao.transactionCanceledCalls == 2
	}, time.Second, time.Millisecond, "expected exactly one retry")

	// No further retry should ever arrive; give any spurious one a chance
	// to show up before asserting its absence.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, payableDao.transactionCanceledCalls)
	assert.Equal(t, 0, pendingPayableDao.markFailedCalls, "a cancel that never succeeds must not mark the fingerprint failed")
}
