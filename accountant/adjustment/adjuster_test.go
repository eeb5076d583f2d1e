package adjustment

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masq-node/accountant/accountant/ledger"
	"github.com/masq-node/accountant/accountant/threshold"
	"github.com/masq-node/accountant/wallet"
)

func seedThresholds() threshold.PaymentThresholds {
	return threshold.PaymentThresholds{
		MaturityThresholdSec:     333,
		PaymentGracePeriodSec:    444,
		PermanentDebtAllowedGwei: 4444,
		DebtThresholdGwei:        8888,
		ThresholdIntervalSec:     1_111_111,
		UnbanBelowGwei:           1000,
	}
}

func acctWithBalance(t *testing.T, n byte, balanceWei int64, age time.Duration, now time.Time) ledger.PayableAccount {
	t.Helper()
	var raw [20]byte
	raw[19] = n
	return ledger.PayableAccount{
		Wallet:            wallet.New(raw),
		BalanceWei:        big.NewInt(balanceWei),
		LastPaidTimestamp: now.Add(-age),
	}
}

func balancesOf(serviceFeeWei int64) ledger.ConsumingWalletBalances {
	return ledger.ConsumingWalletBalances{ServiceFeeBalanceWei: big.NewInt(serviceFeeWei)}
}

func TestAdjustPaymentsFullyAffordableReturnsUnchanged(t *testing.T) {
	now := time.Now()
	accounts := []ledger.PayableAccount{
		acctWithBalance(t, 1, 100_000_000_000_000, time.Hour, now),
		acctWithBalance(t, 2, 200_000_000_000_000, 2*time.Hour, now),
	}
	balances := balancesOf(1_000_000_000_000_000)

	adjuster := NewAdjuster(seedThresholds())
	result, err := adjuster.AdjustPayments(context.Background(), accounts, balances, now)
	require.NoError(t, err)
	assert.Equal(t, accounts, result, "unexpected adjustment; got:\n%s", spew.Sdump(result))
}

func TestAdjustPaymentsShrunkBatchFitsBudget(t *testing.T) {
	now := time.Now()
	accounts := []ledger.PayableAccount{
		acctWithBalance(t, 1, 111_000_000_000_000, 10*time.Hour, now),
		acctWithBalance(t, 2, 333_000_000_000_000, 20*time.Hour, now),
		acctWithBalance(t, 3, 222_000_000_000_000, 15*time.Hour, now),
	}
	balances := balancesOf(499_499_999_999_999)

	adjuster := NewAdjuster(seedThresholds())
	result, err := adjuster.AdjustPayments(context.Background(), accounts, balances, now)
	require.NoError(t, err)

	sum := new(big.Int)
	originals := map[string]*big.Int{}
	for _, a := range accounts {
		originals[a.Wallet.Display()] = a.BalanceWei
	}
	for _, r := range result {
		sum.Add(sum, r.BalanceWei)
		assert.True(t, r.BalanceWei.Cmp(originals[r.Wallet.Display()]) <= 0,
			"adjusted balance must never exceed the original")
	}
	assert.True(t, sum.Cmp(balances.ServiceFeeBalanceWei) <= 0, "adjusted total %s must not exceed available %s", sum, balances.ServiceFeeBalanceWei)
	assert.NotEmpty(t, result)
}

func TestAdjustPaymentsSmallestExceedsBudgetFails(t *testing.T) {
	now := time.Now()
	accounts := []ledger.PayableAccount{
		acctWithBalance(t, 1, 500_000_000_000_000, time.Hour, now),
	}
	balances := balancesOf(1)

	adjuster := NewAdjuster(seedThresholds())
	_, err := adjuster.AdjustPayments(context.Background(), accounts, balances, now)
	require.Error(t, err)
	adjErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, NotEnoughServiceFeeBalanceEvenForTheSmallestTransaction, adjErr.Kind)
}

func TestAdjustPaymentsEmptyBatchReturnsEmpty(t *testing.T) {
	adjuster := NewAdjuster(seedThresholds())
	result, err := adjuster.AdjustPayments(context.Background(), nil, balancesOf(1), time.Now())
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestAdjustPaymentsGasBalanceCannotCoverSingleTxFails(t *testing.T) {
	now := time.Now()
	accounts := []ledger.PayableAccount{
		acctWithBalance(t, 1, 100_000_000_000_000, time.Hour, now),
	}
	balances := ledger.ConsumingWalletBalances{
		ServiceFeeBalanceWei:   big.NewInt(1_000_000_000_000_000),
		GasBalanceWei:          big.NewInt(10),
		GasPriceWei:            big.NewInt(1_000_000),
		GasLimitPerTransaction: 21_000,
	}

	adjuster := NewAdjuster(seedThresholds())
	_, err := adjuster.AdjustPayments(context.Background(), accounts, balances, now)
	require.Error(t, err)
	adjErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, NotEnoughTransactionFeeBalanceForSingleTx, adjErr.Kind)
}

func TestAdjustPaymentsGasCapTruncatesBatch(t *testing.T) {
	now := time.Now()
	accounts := []ledger.PayableAccount{
		acctWithBalance(t, 1, 100_000_000_000_000, time.Hour, now),
		acctWithBalance(t, 2, 100_000_000_000_000, 2*time.Hour, now),
		acctWithBalance(t, 3, 100_000_000_000_000, 3*time.Hour, now),
	}
	gasPerTx := big.NewInt(21_000_000_000)
	balances := ledger.ConsumingWalletBalances{
		ServiceFeeBalanceWei:   big.NewInt(1_000_000_000_000_000),
		GasBalanceWei:          new(big.Int).Mul(gasPerTx, big.NewInt(2)),
		GasPriceWei:            big.NewInt(1),
		GasLimitPerTransaction: 21_000_000_000,
	}

	adjuster := NewAdjuster(seedThresholds())
	result, err := adjuster.AdjustPayments(context.Background(), accounts, balances, now)
	require.NoError(t, err)
	assert.Len(t, result, 2, "gas balance affords only 2 of 3 transactions")
}
