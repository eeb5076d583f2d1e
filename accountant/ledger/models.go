// Package ledger holds the Accountant's shared domain types: account
// records, DAO interfaces, and the inbound/outbound message shapes
// scanners and the actor itself exchange. Split out from the actor
// package so accountant/scanners and accountant/adjustment can depend on
// these types without creating an import cycle back to the actor.
package ledger

import (
	"math/big"
	"time"

	"github.com/masq-node/accountant/wallet"
)

// PayableAccount is money the node owes a peer for routing service
// consumed. Invariant: BalanceWei >= 0. PendingPayableRowID is non-nil iff
// a transaction hash has been recorded but not yet confirmed; such rows
// are excluded from the non-pending-payables scan (spec.md section 3).
type PayableAccount struct {
	Wallet              wallet.Wallet
	BalanceWei          *big.Int
	LastPaidTimestamp   time.Time
	PendingPayableRowID *int64
}

// IsPending reports whether this payable has an outstanding, unconfirmed
// transaction recorded against it.
func (p PayableAccount) IsPending() bool {
	return p.PendingPayableRowID != nil
}

// AgeSec returns the debt's age in seconds as of now.
func (p PayableAccount) AgeSec(now time.Time) int64 {
	return int64(now.Sub(p.LastPaidTimestamp).Seconds())
}

// ReceivableAccount is money a peer owes the node for routing service
// provided. BalanceWei is positive when the peer owes us, negative when we
// owe them (an over-payment), and exact zero is possible (spec.md
// section 3).
type ReceivableAccount struct {
	Wallet                wallet.Wallet
	BalanceWei            *big.Int
	LastReceivedTimestamp time.Time
}

func (r ReceivableAccount) AgeSec(now time.Time) int64 {
	return int64(now.Sub(r.LastReceivedTimestamp).Seconds())
}

// OneGweiWei is the sub-gwei floor below which no account may surface
// through a UI query (spec.md section 3): rows below it are considered
// broken by query construction. Also used as the default MinAmountWei
// for an unfiltered UiFinancialsRequest.
var OneGweiWei = big.NewInt(1_000_000_000)

// AboveDustFloor reports whether |balance| is at least 1 gwei.
func AboveDustFloor(balanceWei *big.Int) bool {
	abs := new(big.Int).Abs(balanceWei)
	return abs.Cmp(OneGweiWei) >= 0
}

// ProcessErrorKind enumerates why a pending payable fingerprint was
// declared a permanent failure.
type ProcessErrorKind string

const (
	// ProcessErrorTimedOut is recorded when no receipt arrived within
	// max_pending_interval (spec.md section 4.4), and also by the
	// Accountant when it cancels a transaction whose receipt came back
	// as a failure.
	ProcessErrorTimedOut ProcessErrorKind = "timed_out"
)

// PendingPayableFingerprint is the locally persisted record of a submitted
// but not-yet-confirmed on-chain transaction (spec.md section 3).
// Lifecycle: created on submission; Attempt increments on each receipt
// poll; terminal on confirmation (row deleted) or on failure past
// max_pending_interval (row preserved, ProcessError set, banned from
// automatic retry).
type PendingPayableFingerprint struct {
	RowID           int64
	Timestamp       time.Time
	Hash            string
	Attempt         int
	AmountWei       *big.Int
	Nonce           uint64
	ProcessError    *ProcessErrorKind
}

// AgeSec returns the fingerprint's age in seconds as of now.
func (f PendingPayableFingerprint) AgeSec(now time.Time) int64 {
	return int64(now.Sub(f.Timestamp).Seconds())
}

// IsTerminallyFailed reports whether this fingerprint has already been
// marked as a permanent failure and must not be retried automatically.
func (f PendingPayableFingerprint) IsTerminallyFailed() bool {
	return f.ProcessError != nil
}
