package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/masq-node/accountant/accountant/bigint"
	"github.com/masq-node/accountant/accountant/daoutils"
	"github.com/masq-node/accountant/accountant/threshold"
	"github.com/masq-node/accountant/wallet"
)

// ReceivableDao is the typed wrapper over the receivable table: money peers
// owe the node for routing service provided (spec.md sections 3/4.6).
type ReceivableDao interface {
	MoreMoneyReceivable(now time.Time, wallet wallet.Wallet, chargeWei *big.Int) error
	ReceivedPayments(now time.Time, payments []ReceivedPayment) error
	NewDelinquencies(now time.Time, t threshold.PaymentThresholds) ([]ReceivableAccount, error)
	PaidDelinquencies(t threshold.PaymentThresholds) ([]ReceivableAccount, error)
	TopReceivables(n int, minBalanceWei *big.Int, now time.Time) ([]ReceivableAccount, error)
	TotalReceivableWei() (*big.Int, error)
}

// ReceivedPayment is one observed incoming payment applied against a
// peer's receivable balance (spec.md section 4.6 ReceivedPayments message).
type ReceivedPayment struct {
	Wallet    wallet.Wallet
	AmountWei *big.Int
	TxHash    string
}

type sqlReceivableDao struct {
	db        *sql.DB
	processor *bigint.BigIntDbProcessor
}

// NewReceivableDao wraps an open database handle.
func NewReceivableDao(db *sql.DB) ReceivableDao {
	return &sqlReceivableDao{db: db, processor: bigint.NewBigIntDbProcessor(db)}
}

const receivableUpsertSQL = `
INSERT INTO receivable (wallet_address, balance_high_b, balance_low_b, last_received_timestamp)
VALUES (:wallet_address, :balance_high_b, :balance_low_b, :now)
ON CONFLICT (wallet_address) DO UPDATE SET
    balance_high_b = balance_high_b + :balance_high_b,
    balance_low_b  = balance_low_b + :balance_low_b
`

const receivableOverflowSQL = `
UPDATE receivable SET
    balance_high_b = balance_high_b + :balance_requested_high_b + 1,
    balance_low_b  = (balance_low_b + :balance_requested_low_b) & 9223372036854775807
WHERE wallet_address = :wallet_address
`

// MoreMoneyReceivable records that a peer now owes the node an additional
// chargeWei for exit or routing service the node provided.
func (d *sqlReceivableDao) MoreMoneyReceivable(now time.Time, w wallet.Wallet, chargeWei *big.Int) error {
	bundle := bigint.ParamsBundle{
		Table:     "receivable",
		KeyColumn: "wallet_address",
		KeyValue:  w.Display(),
		Changes:   []bigint.FieldChange{{Name: "balance", WeiChange: chargeWei}},
		Extra:     map[string]interface{}{"now": now.Unix()},
	}
	return d.processor.Execute(context.Background(), receivableUpsertSQL, receivableOverflowSQL, bundle)
}

// ReceivedPayments applies a batch of observed incoming payments, each
// reducing the paying wallet's receivable balance (spec.md section 4.6).
// A single failed payment is logged and skipped; the rest still apply.
func (d *sqlReceivableDao) ReceivedPayments(now time.Time, payments []ReceivedPayment) error {
	for _, p := range payments {
		negative := new(big.Int).Neg(p.AmountWei)
		bundle := bigint.ParamsBundle{
			Table:     "receivable",
			KeyColumn: "wallet_address",
			KeyValue:  p.Wallet.Display(),
			Changes:   []bigint.FieldChange{{Name: "balance", WeiChange: negative}},
			Extra:     map[string]interface{}{"now": now.Unix()},
		}
		const sqlStmt = `
UPDATE receivable SET
    balance_high_b = balance_high_b + :balance_high_b,
    balance_low_b  = balance_low_b + :balance_low_b,
    last_received_timestamp = :now
WHERE wallet_address = :wallet_address
`
		if err := d.processor.Execute(context.Background(), sqlStmt, receivableOverflowSQL, bundle); err != nil {
			log.Warnf("accountant: skipping received payment %s from %s: %v", p.TxHash, p.Wallet.Display(), err)
		}
	}
	return nil
}

// NewDelinquencies returns receivable rows that just crossed into ban
// territory: balance at or above DebtThresholdGwei and older than
// MaturityThresholdSec plus PaymentGracePeriodSec (spec.md section 4.7,
// ban policy).
func (d *sqlReceivableDao) NewDelinquencies(now time.Time, t threshold.PaymentThresholds) ([]ReceivableAccount, error) {
	thresholdWei := new(big.Int).Mul(big.NewInt(t.DebtThresholdGwei), big.NewInt(1_000_000_000))
	high, low := bigint.Deconstruct(thresholdWei)
	cutoff := now.Add(-time.Duration(t.MaturityThresholdSec+t.PaymentGracePeriodSec) * time.Second).Unix()

	query := fmt.Sprintf(`
SELECT wallet_address, balance_high_b, balance_low_b, last_received_timestamp
FROM receivable
WHERE %s
  AND last_received_timestamp <= ?
ORDER BY balance_high_b DESC, balance_low_b DESC`,
		daoutils.BalanceAtLeast("balance_high_b", "balance_low_b"))
	return d.queryReceivables(query, high, high, low, cutoff)
}

// PaidDelinquencies returns receivable rows that have fallen back below
// UnbanBelowGwei, eligible to be unbanned (spec.md section 4.7).
func (d *sqlReceivableDao) PaidDelinquencies(t threshold.PaymentThresholds) ([]ReceivableAccount, error) {
	thresholdWei := new(big.Int).Mul(big.NewInt(t.UnbanBelowGwei), big.NewInt(1_000_000_000))
	high, low := bigint.Deconstruct(thresholdWei)

	query := fmt.Sprintf(`
SELECT wallet_address, balance_high_b, balance_low_b, last_received_timestamp
FROM receivable
WHERE %s
ORDER BY balance_high_b DESC, balance_low_b DESC`,
		daoutils.BalanceBelow("balance_high_b", "balance_low_b"))
	return d.queryReceivables(query, high, high, low)
}

// TopReceivables returns the top n receivable rows at least minBalanceWei,
// ordered by balance descending and, among equal balances, oldest first,
// for UI financials queries.
func (d *sqlReceivableDao) TopReceivables(n int, minBalanceWei *big.Int, now time.Time) ([]ReceivableAccount, error) {
	minHigh, minLow := bigint.Deconstruct(minBalanceWei)
	query := fmt.Sprintf(`
SELECT wallet_address, balance_high_b, balance_low_b, last_received_timestamp
FROM receivable
WHERE %s
  AND %s
ORDER BY balance_high_b DESC, balance_low_b DESC, last_received_timestamp ASC
LIMIT ?`,
		daoutils.BalanceAtLeast("balance_high_b", "balance_low_b"),
		daoutils.DustFloorExclusion("balance_high_b", "balance_low_b"),
	)
	return d.queryReceivables(query, minHigh, minHigh, minLow, n)
}

func (d *sqlReceivableDao) queryReceivables(query string, args ...interface{}) ([]ReceivableAccount, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("accountant: querying receivables: %w", err)
	}
	defer rows.Close()

	var out []ReceivableAccount
	for rows.Next() {
		var addr string
		var high, low, lastReceived int64
		if err := rows.Scan(&addr, &high, &low, &lastReceived); err != nil {
			return nil, fmt.Errorf("accountant: scanning receivable row: %w", err)
		}
		w, err := wallet.FromHex(addr)
		if err != nil {
			return nil, fmt.Errorf("accountant: receivable row has invalid wallet %q: %w", addr, err)
		}
		out = append(out, ReceivableAccount{
			Wallet:                w,
			BalanceWei:            bigint.Reconstitute(high, low),
			LastReceivedTimestamp: time.Unix(lastReceived, 0).UTC(),
		})
	}
	return out, rows.Err()
}

// TotalReceivableWei sums every receivable row's balance for the UI
// financials response.
func (d *sqlReceivableDao) TotalReceivableWei() (*big.Int, error) {
	row := d.db.QueryRow(`SELECT COALESCE(SUM(balance_high_b), 0), COALESCE(SUM(balance_low_b), 0) FROM receivable`)
	var high, low int64
	if err := row.Scan(&high, &low); err != nil {
		return nil, fmt.Errorf("accountant: summing receivable: %w", err)
	}
	total := new(big.Int).Lsh(big.NewInt(high), 63)
	total.Add(total, big.NewInt(low))
	return total, nil
}
