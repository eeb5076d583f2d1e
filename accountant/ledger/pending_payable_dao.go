package ledger

import (
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/masq-node/accountant/accountant/bigint"
)

// PendingPayableDao tracks submitted-but-unconfirmed on-chain transactions
// (spec.md section 4.4). A row's lifetime: insert on submission, updated
// on each receipt poll (Attempt incremented), deleted on confirmation, or
// flagged terminally failed once past the scanner's max pending interval.
type PendingPayableDao interface {
	InsertFingerprint(now time.Time, hash string, amountWei *big.Int, nonce uint64) (int64, error)
	FingerprintsToScan() ([]PendingPayableFingerprint, error)
	IncrementAttempt(rowID int64) error
	MarkFailed(rowID int64, kind ProcessErrorKind) error
	DeleteFingerprint(rowID int64) error
}

type sqlPendingPayableDao struct {
	db *sql.DB
}

// NewPendingPayableDao wraps an open database handle.
func NewPendingPayableDao(db *sql.DB) PendingPayableDao {
	return &sqlPendingPayableDao{db: db}
}

// InsertFingerprint records a freshly submitted transaction and returns
// its row id so the caller can point the payable row's pending_payable_rowid
// at it (spec.md section 4.4).
func (d *sqlPendingPayableDao) InsertFingerprint(now time.Time, hash string, amountWei *big.Int, nonce uint64) (int64, error) {
	high, low := bigint.Deconstruct(amountWei)
	result, err := d.db.Exec(
		`INSERT INTO pending_payable (transaction_hash, amount_high_b, amount_low_b, payable_timestamp, attempt, nonce)
		 VALUES (?, ?, ?, ?, 1, ?)`,
		hash, high, low, now.Unix(), nonce,
	)
	if err != nil {
		return 0, &PaymentError{Kind: PaymentErrorRusqlite, TransactionID: hash, EngineMsg: err.Error()}
	}
	return result.LastInsertId()
}

// FingerprintsToScan returns every fingerprint not yet marked terminally
// failed, the input to the pending payable scanner's receipt poll.
func (d *sqlPendingPayableDao) FingerprintsToScan() ([]PendingPayableFingerprint, error) {
	rows, err := d.db.Query(`
SELECT rowid, transaction_hash, amount_high_b, amount_low_b, payable_timestamp, attempt, nonce, process_error
FROM pending_payable
WHERE process_error IS NULL
ORDER BY payable_timestamp ASC
`)
	if err != nil {
		return nil, fmt.Errorf("accountant: querying pending payable fingerprints: %w", err)
	}
	defer rows.Close()

	var out []PendingPayableFingerprint
	for rows.Next() {
		var rowID, high, low, ts, attempt, nonce int64
		var hash string
		var processError sql.NullString
		if err := rows.Scan(&rowID, &hash, &high, &low, &ts, &attempt, &nonce, &processError); err != nil {
			return nil, fmt.Errorf("accountant: scanning pending payable row: %w", err)
		}
		fp := PendingPayableFingerprint{
			RowID:     rowID,
			Timestamp: time.Unix(ts, 0).UTC(),
			Hash:      hash,
			Attempt:   int(attempt),
			AmountWei: bigint.Reconstitute(high, low),
			Nonce:     uint64(nonce),
		}
		if processError.Valid {
			kind := ProcessErrorKind(processError.String)
			fp.ProcessError = &kind
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}

// IncrementAttempt bumps the fingerprint's poll counter after an
// inconclusive receipt check.
func (d *sqlPendingPayableDao) IncrementAttempt(rowID int64) error {
	_, err := d.db.Exec(`UPDATE pending_payable SET attempt = attempt + 1 WHERE rowid = ?`, rowID)
	return err
}

// MarkFailed flags a fingerprint as a permanent failure, excluding it from
// future automatic retries (spec.md section 4.4).
func (d *sqlPendingPayableDao) MarkFailed(rowID int64, kind ProcessErrorKind) error {
	_, err := d.db.Exec(`UPDATE pending_payable SET process_error = ? WHERE rowid = ?`, string(kind), rowID)
	return err
}

// DeleteFingerprint removes a confirmed or canceled fingerprint.
func (d *sqlPendingPayableDao) DeleteFingerprint(rowID int64) error {
	_, err := d.db.Exec(`DELETE FROM pending_payable WHERE rowid = ?`, rowID)
	return err
}
