package adjustment

import "fmt"

// ErrorKind enumerates why AdjustPayments could not produce a payable
// batch (spec.md section 4.5).
type ErrorKind int

const (
	// NotEnoughTransactionFeeBalanceForSingleTx means the gas balance
	// cannot cover even one transaction at the current gas price and
	// per-transaction gas limit: floor(gas_balance / (gas_price *
	// gas_limit_per_tx)) == 0.
	NotEnoughTransactionFeeBalanceForSingleTx ErrorKind = iota

	// NotEnoughServiceFeeBalanceEvenForTheSmallestTransaction means even
	// the cheapest qualified debt exceeds the consuming wallet's token
	// balance: no subset, however small, can be paid.
	NotEnoughServiceFeeBalanceEvenForTheSmallestTransaction

	// AllAccountsEliminated means the recursive drop-one algorithm ran
	// out of accounts before converging on a payable subset.
	AllAccountsEliminated
)

// Error reports why the adjuster could not produce a batch.
type Error struct {
	Kind ErrorKind
}

func (e *Error) Error() string {
	switch e.Kind {
	case NotEnoughTransactionFeeBalanceForSingleTx:
		return "adjustment: gas balance too small to cover even a single transaction"
	case NotEnoughServiceFeeBalanceEvenForTheSmallestTransaction:
		return "adjustment: service fee balance too small for even the smallest qualified debt"
	case AllAccountsEliminated:
		return "adjustment: every account was eliminated before a payable batch converged"
	default:
		return fmt.Sprintf("adjustment: error kind %d", e.Kind)
	}
}
