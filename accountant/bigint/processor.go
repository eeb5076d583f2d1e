package bigint

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"strings"
)

// FieldChange names one big-integer column being added to (or subtracted
// from, via a negative WeiChange) by a statement. The primary and overflow
// SQL must both reference :<Name>_high_b and :<Name>_low_b.
type FieldChange struct {
	Name      string
	WeiChange *big.Int
}

// ParamsBundle is the parameter bundle BigIntDbProcessor.Execute threads
// into both the primary and the overflow-compensation statement: the
// unique key column identifying the row, the signed wei changes, and any
// other named parameters the caller's SQL needs (timestamps, hashes, ...).
type ParamsBundle struct {
	Table     string
	KeyColumn string
	KeyValue  interface{}
	Changes   []FieldChange
	Extra     map[string]interface{}
}

// namedArgs expands the bundle into the *_high_b/*_low_b named parameters
// every Deconstruct'd field needs, plus the key and any extra parameters.
func (p ParamsBundle) namedArgs() []interface{} {
	args := []interface{}{sql.Named(p.KeyColumn, p.KeyValue)}
	for _, c := range p.Changes {
		high, low := Deconstruct(c.WeiChange)
		args = append(args,
			sql.Named(c.Name+"_high_b", high),
			sql.Named(c.Name+"_low_b", low),
		)
	}
	for name, value := range p.Extra {
		args = append(args, sql.Named(name, value))
	}
	return args
}

// Execer is the minimal subset of *sql.DB / *sql.Tx the processor needs;
// satisfied by both, so callers can run Execute inside an existing
// transaction or let it open its own for the overflow path.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxBeginner is implemented by *sql.DB; BigIntDbProcessor uses it to open
// the short transaction that makes the overflow-compensation read-modify-
// write atomic against concurrent readers (spec.md section 5).
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// DB is the full handle BigIntDbProcessor needs: *sql.DB satisfies it
// directly, for either the sqlite or the Postgres backend (spec.md
// section 2 domain-stack note).
type DB interface {
	Execer
	TxBeginner
}

// BigIntDbProcessor is the generic upsert/update engine described in
// spec.md section 4.2 / section 9: callers supply a primary statement, an
// overflow-compensation statement, and a parameter bundle; the only
// per-table knowledge it needs is the key column name and the two SQL
// strings.
type BigIntDbProcessor struct {
	db DB
}

// NewBigIntDbProcessor wraps an already-open database handle (sqlite or
// Postgres, both satisfy DB via *sql.DB).
func NewBigIntDbProcessor(db DB) *BigIntDbProcessor {
	return &BigIntDbProcessor{db: db}
}

// Execute runs primarySQL with the bundle's named parameters. If the
// engine reports the low half overflowed (a strict-INTEGER-column
// datatype mismatch, modernc.org/sqlite's signal for this), it instead
// runs overflowSQL as a compensating read-current/re-add-with-carry/write
// inside a short transaction. Any other error is wrapped identifying the
// table, the change, and the key.
func (p *BigIntDbProcessor) Execute(ctx context.Context, primarySQL, overflowSQL string, bundle ParamsBundle) error {
	_, err := p.db.ExecContext(ctx, primarySQL, bundle.namedArgs()...)
	if err == nil {
		return nil
	}

	if !isLowHalfOverflow(err) {
		return &TableUpdateError{
			Table:     bundle.Table,
			KeyColumn: bundle.KeyColumn,
			KeyValue:  bundle.KeyValue,
			WeiChange: changeSummary(bundle.Changes),
			EngineMsg: err.Error(),
		}
	}

	log.Infof("bigint: low-half overflow updating %s (%s=%v), running overflow "+
		"compensation", bundle.Table, bundle.KeyColumn, bundle.KeyValue)

	return p.runOverflowCompensation(ctx, overflowSQL, bundle)
}

// runOverflowCompensation implements spec.md section 4.2 step 2: read the
// current (high, low) for the row, compute new_high = high + requested_high
// + 1 (the carry) and new_low = (low + requested_low) & 0x7FFF_FFFF_FFFF_FFFF,
// and write them back inside one transaction. It is a hard bug if the
// write claims to have touched more than one row.
func (p *BigIntDbProcessor) runOverflowCompensation(ctx context.Context, overflowSQL string, bundle ParamsBundle) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return &TableUpdateError{
			Table: bundle.Table, KeyColumn: bundle.KeyColumn, KeyValue: bundle.KeyValue,
			WeiChange: changeSummary(bundle.Changes), EngineMsg: err.Error(),
		}
	}
	defer tx.Rollback()

	args := make([]interface{}, 0, len(bundle.Changes)*2+1+len(bundle.Extra))
	args = append(args, sql.Named(bundle.KeyColumn, bundle.KeyValue))
	for _, c := range bundle.Changes {
		high, low := Deconstruct(c.WeiChange)
		args = append(args,
			sql.Named(c.Name+"_requested_high_b", high),
			sql.Named(c.Name+"_requested_low_b", low),
		)
	}
	for name, value := range bundle.Extra {
		args = append(args, sql.Named(name, value))
	}

	result, err := tx.ExecContext(ctx, overflowSQL, args...)
	if err != nil {
		return &TableUpdateError{
			Table: bundle.Table, KeyColumn: bundle.KeyColumn, KeyValue: bundle.KeyValue,
			WeiChange: changeSummary(bundle.Changes), EngineMsg: err.Error(),
		}
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return &TableUpdateError{
			Table: bundle.Table, KeyColumn: bundle.KeyColumn, KeyValue: bundle.KeyValue,
			WeiChange: changeSummary(bundle.Changes), EngineMsg: err.Error(),
		}
	}
	if rows > 1 {
		panic(fmt.Sprintf(
			"bigint: overflow compensation on table %s touched %d rows for %s=%v, expected exactly 1",
			bundle.Table, rows, bundle.KeyColumn, bundle.KeyValue,
		))
	}

	return tx.Commit()
}

// isLowHalfOverflow reports whether err is the embedded engine's signal
// that a low-half STRICT INTEGER column overflowed into a non-integer
// value ("datatype mismatch"). modernc.org/sqlite and a Postgres numeric
// overflow both surface this as a substring match on the driver's error
// text; the row-store contract (spec.md section 1) only guarantees some
// such signal exists, not its exact shape, so substring matching is this
// package's one deliberately loose edge.
func isLowHalfOverflow(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "datatype mismatch") ||
		strings.Contains(msg, "numeric field overflow") ||
		strings.Contains(msg, "out of range")
}

func changeSummary(changes []FieldChange) string {
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		parts = append(parts, fmt.Sprintf("%s=%s", c.Name, c.WeiChange.String()))
	}
	return strings.Join(parts, ",")
}
