package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/masq-node/accountant/accountant/bigint"
	"github.com/masq-node/accountant/accountant/daoutils"
	"github.com/masq-node/accountant/wallet"
)

// PayableDao is the typed wrapper over the SQL engine's payable table
// (spec.md sections 4.3/6): record debt, mark pending, confirm, cancel,
// and query the rows a scan needs. The Accountant owns one implementation
// behind this interface so tests can swap in a fake.
type PayableDao interface {
	MoreMoneyPayable(now time.Time, wallet wallet.Wallet, chargeWei *big.Int) error
	NonPendingPayables() ([]PayableAccount, error)
	MarkPendingPayable(wallet wallet.Wallet, pendingRowID int64) error
	TransactionConfirmed(fingerprint PendingPayableFingerprint) error
	TransactionCanceled(fingerprint PendingPayableFingerprint) error
	TopPayables(n int, minBalanceWei *big.Int, maxAgeSec int64, now time.Time) ([]PayableAccount, error)
	TotalPayableWei() (*big.Int, error)
}

// sqlPayableDao is the BigIntDbProcessor-backed implementation.
type sqlPayableDao struct {
	db        *sql.DB
	processor *bigint.BigIntDbProcessor
}

// NewPayableDao wraps an open database handle.
func NewPayableDao(db *sql.DB) PayableDao {
	return &sqlPayableDao{db: db, processor: bigint.NewBigIntDbProcessor(db)}
}

const payableUpsertSQL = `
INSERT INTO payable (wallet_address, balance_high_b, balance_low_b, last_paid_timestamp)
VALUES (:wallet_address, :balance_high_b, :balance_low_b, :now)
ON CONFLICT (wallet_address) DO UPDATE SET
    balance_high_b = balance_high_b + :balance_high_b,
    balance_low_b  = balance_low_b + :balance_low_b
`

const payableOverflowSQL = `
UPDATE payable SET
    balance_high_b = balance_high_b + :balance_requested_high_b + 1,
    balance_low_b  = (balance_low_b + :balance_requested_low_b) & 9223372036854775807
WHERE wallet_address = :wallet_address
`

// MoreMoneyPayable records that the node now owes wallet an additional
// chargeWei for routing service it consumed (spec.md section 4.6).
func (d *sqlPayableDao) MoreMoneyPayable(now time.Time, w wallet.Wallet, chargeWei *big.Int) error {
	bundle := bigint.ParamsBundle{
		Table:     "payable",
		KeyColumn: "wallet_address",
		KeyValue:  w.Display(),
		Changes:   []bigint.FieldChange{{Name: "balance", WeiChange: chargeWei}},
		Extra:     map[string]interface{}{"now": now.Unix()},
	}
	return d.processor.Execute(context.Background(), payableUpsertSQL, payableOverflowSQL, bundle)
}

const nonPendingPayablesSQL = `
SELECT wallet_address, balance_high_b, balance_low_b, last_paid_timestamp
FROM payable
WHERE pending_payable_rowid IS NULL
ORDER BY balance_high_b DESC, balance_low_b DESC
`

// NonPendingPayables returns every payable row with no outstanding
// transaction, the input the threshold curve filters down to qualified
// debts (spec.md section 4.4).
func (d *sqlPayableDao) NonPendingPayables() ([]PayableAccount, error) {
	rows, err := d.db.Query(nonPendingPayablesSQL)
	if err != nil {
		return nil, fmt.Errorf("accountant: querying non-pending payables: %w", err)
	}
	defer rows.Close()

	var out []PayableAccount
	for rows.Next() {
		var addr string
		var high, low, lastPaid int64
		if err := rows.Scan(&addr, &high, &low, &lastPaid); err != nil {
			return nil, fmt.Errorf("accountant: scanning payable row: %w", err)
		}
		w, err := wallet.FromHex(addr)
		if err != nil {
			return nil, fmt.Errorf("accountant: payable row has invalid wallet %q: %w", addr, err)
		}
		out = append(out, PayableAccount{
			Wallet:            w,
			BalanceWei:        bigint.Reconstitute(high, low),
			LastPaidTimestamp: time.Unix(lastPaid, 0).UTC(),
		})
	}
	return out, rows.Err()
}

// MarkPendingPayable records that a transaction has been signed and
// submitted for wallet, pointing the payable row at the new pending
// payable fingerprint row.
func (d *sqlPayableDao) MarkPendingPayable(w wallet.Wallet, pendingRowID int64) error {
	_, err := d.db.Exec(
		`UPDATE payable SET pending_payable_rowid = ? WHERE wallet_address = ?`,
		pendingRowID, w.Display(),
	)
	if err != nil {
		return &PaymentError{Kind: PaymentErrorRusqlite, TransactionID: w.Display(), EngineMsg: err.Error()}
	}
	return nil
}

// TransactionConfirmed subtracts the confirmed payment from the payable's
// balance and clears its pending pointer (spec.md section 4.4).
func (d *sqlPayableDao) TransactionConfirmed(fp PendingPayableFingerprint) error {
	negative := new(big.Int).Neg(fp.AmountWei)
	bundle := bigint.ParamsBundle{
		Table:     "payable",
		KeyColumn: "pending_payable_rowid",
		KeyValue:  fp.RowID,
		Changes:   []bigint.FieldChange{{Name: "balance", WeiChange: negative}},
	}
	const sqlStmt = `
UPDATE payable SET
    balance_high_b = balance_high_b + :balance_high_b,
    balance_low_b  = balance_low_b + :balance_low_b,
    pending_payable_rowid = NULL
WHERE pending_payable_rowid = :pending_payable_rowid
`
	const overflowSQL = `
UPDATE payable SET
    balance_high_b = balance_high_b + :balance_requested_high_b + 1,
    balance_low_b  = (balance_low_b + :balance_requested_low_b) & 9223372036854775807,
    pending_payable_rowid = NULL
WHERE pending_payable_rowid = :pending_payable_rowid
`
	if err := d.processor.Execute(context.Background(), sqlStmt, overflowSQL, bundle); err != nil {
		return err
	}
	return nil
}

// TransactionCanceled clears the payable's pending pointer without
// touching its balance, because the payment never actually happened
// (spec.md section 4.4).
func (d *sqlPayableDao) TransactionCanceled(fp PendingPayableFingerprint) error {
	_, err := d.db.Exec(
		`UPDATE payable SET pending_payable_rowid = NULL WHERE pending_payable_rowid = ?`,
		fp.RowID,
	)
	if err != nil {
		return &PaymentError{Kind: PaymentErrorRusqlite, TransactionID: fp.Hash, EngineMsg: err.Error()}
	}
	return nil
}

// TopPayables returns the top n payable rows at least minBalanceWei and at
// most maxAgeSec old (zero means no age bound), ordered by (balance desc,
// age desc) for UI financials queries (spec.md section 4.6). Rows with
// sub-gwei balances never surface: the query itself excludes them.
func (d *sqlPayableDao) TopPayables(n int, minBalanceWei *big.Int, maxAgeSec int64, now time.Time) ([]PayableAccount, error) {
	minHigh, minLow := bigint.Deconstruct(minBalanceWei)
	var minAge int64
	if maxAgeSec > 0 {
		minAge = now.Add(-time.Duration(maxAgeSec) * time.Second).Unix()
	}

	query := fmt.Sprintf(`
SELECT wallet_address, balance_high_b, balance_low_b, last_paid_timestamp
FROM payable
WHERE %s
  AND last_paid_timestamp >= ?
  AND %s
%s
LIMIT ?`,
		daoutils.BalanceAtLeast("balance_high_b", "balance_low_b"),
		daoutils.DustFloorExclusion("balance_high_b", "balance_low_b"),
		daoutils.TopOrderedByBalanceThenAge,
	)
	rows, err := d.db.Query(query, minHigh, minHigh, minLow, minAge, n)
	if err != nil {
		return nil, fmt.Errorf("accountant: querying top payables: %w", err)
	}
	defer rows.Close()

	var out []PayableAccount
	for rows.Next() {
		var addr string
		var high, low, lastPaid int64
		if err := rows.Scan(&addr, &high, &low, &lastPaid); err != nil {
			return nil, err
		}
		w, err := wallet.FromHex(addr)
		if err != nil {
			return nil, err
		}
		balance := bigint.Reconstitute(high, low)
		if !AboveDustFloor(balance) {
			panic(fmt.Sprintf("accountant: sub-gwei payable row surfaced for %s; DAO query contract violated", addr))
		}
		out = append(out, PayableAccount{
			Wallet:            w,
			BalanceWei:        balance,
			LastPaidTimestamp: time.Unix(lastPaid, 0).UTC(),
		})
	}
	return out, rows.Err()
}

// TotalPayableWei sums every payable row's balance for the UI financials
// response.
func (d *sqlPayableDao) TotalPayableWei() (*big.Int, error) {
	row := d.db.QueryRow(`SELECT COALESCE(SUM(balance_high_b), 0), COALESCE(SUM(balance_low_b), 0) FROM payable`)
	var high, low int64
	if err := row.Scan(&high, &low); err != nil {
		return nil, fmt.Errorf("accountant: summing payable: %w", err)
	}
	// The summed halves are no longer a valid Deconstruct'd pair (low may
	// have overflowed 63 bits), so recombine with plain arithmetic
	// instead of Reconstitute's strict-low-half check.
	total := new(big.Int).Lsh(big.NewInt(high), 63)
	total.Add(total, big.NewInt(low))
	return total, nil
}
