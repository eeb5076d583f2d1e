package scanners

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/masq-node/accountant/accountant/ledger"
	"github.com/masq-node/accountant/accountant/threshold"
)

// PayableScanner implements spec.md section 4.4's PayableScanner: read
// non-pending payables, filter to qualified ones, hand the batch to the
// PaymentAdjuster, and forward whatever survives to the blockchain
// bridge.
type PayableScanner struct {
	baseScanner
	Dao        ledger.PayableDao
	Thresholds threshold.PaymentThresholds
	Adjuster   ledger.PaymentAdjuster
	Bridge     ledger.BlockchainBridge
}

// NewPayableScanner builds a PayableScanner.
func NewPayableScanner(dao ledger.PayableDao, t threshold.PaymentThresholds, adjuster ledger.PaymentAdjuster, bridge ledger.BlockchainBridge) *PayableScanner {
	return &PayableScanner{baseScanner: baseScanner{name: "payable"}, Dao: dao, Thresholds: t, Adjuster: adjuster, Bridge: bridge}
}

// Scan runs one payable scan pass and returns a human-readable summary
// for the caller to log, per spec.md section 4.4 point 5 (biggest and
// oldest debt summaries on every scan).
func (s *PayableScanner) Scan(ctx context.Context, now time.Time) (string, error) {
	s.BeginScan(now)

	accounts, err := s.Dao.NonPendingPayables()
	if err != nil {
		err = fmt.Errorf("listing non-pending payables: %w", err)
		s.FinishScan("", err)
		return "", err
	}

	var qualified []ledger.PayableAccount
	var biggest, oldest *ledger.PayableAccount
	for i := range accounts {
		acct := accounts[i]
		if biggest == nil || acct.BalanceWei.Cmp(biggest.BalanceWei) > 0 {
			biggest = &acct
		}
		if oldest == nil || acct.LastPaidTimestamp.Before(oldest.LastPaidTimestamp) {
			oldest = &acct
		}
		if threshold.IsQualified(acct.BalanceWei, acct.AgeSec(now), s.Thresholds) {
			qualified = append(qualified, acct)
		}
	}

	summary := summarizeCount("qualified payables", len(qualified))
	if biggest != nil {
		summary += fmt.Sprintf("; biggest=%s (%s wei); oldest=%s (age %ds)",
			biggest.Wallet.Display(), biggest.BalanceWei.String(),
			oldest.Wallet.Display(), oldest.AgeSec(now))
	}

	if len(qualified) == 0 || s.Bridge == nil || s.Adjuster == nil {
		s.FinishScan(summary, nil)
		return summary, nil
	}

	balances, err := s.Bridge.ConsumingWalletBalances()
	if err != nil {
		err = fmt.Errorf("querying consuming wallet balances: %w", err)
		s.FinishScan(summary, err)
		return "", err
	}

	adjusted, err := s.Adjuster.AdjustPayments(ctx, qualified, balances, now)
	if err != nil {
		err = fmt.Errorf("adjusting payment batch: %w", err)
		s.FinishScan(summary, err)
		return "", err
	}
	if len(adjusted) == 0 {
		s.FinishScan(summary, nil)
		return summary, nil
	}

	payments := paymentsFrom(adjusted, now)
	if err := s.Bridge.SendPayments(payments); err != nil {
		err = fmt.Errorf("sending payments: %w", err)
		s.FinishScan(summary, err)
		return "", err
	}

	s.FinishScan(summary, nil)
	return summary, nil
}

func paymentsFrom(accounts []ledger.PayableAccount, now time.Time) []ledger.SentPayment {
	payments := make([]ledger.SentPayment, 0, len(accounts))
	for _, acct := range accounts {
		payments = append(payments, ledger.SentPayment{
			Wallet:    acct.Wallet,
			AmountWei: new(big.Int).Set(acct.BalanceWei),
			Timestamp: now,
		})
	}
	return payments
}
