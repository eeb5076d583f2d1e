// Package daoutils centralizes the SQL fragments shared by the ledger
// DAOs (payable_dao.go, receivable_dao.go): the dust-floor exclusion,
// the big-int balance comparisons, and the "top N ordered by balance
// desc, age desc" ORDER BY used by the payable top-N query.
package daoutils

import "fmt"

// TopOrderedByBalanceThenAge is the ORDER BY clause of the payable "top
// N" query: largest balance first, and among equal balances, the oldest
// (longest-waiting) debt first. It names the payable table's
// last_paid_timestamp column.
const TopOrderedByBalanceThenAge = "ORDER BY balance_high_b DESC, balance_low_b DESC, last_paid_timestamp ASC"

// DustFloorExclusion is the WHERE fragment excluding sub-gwei rows from
// any query whose results are surfaced through a UI financials response
// (spec.md section 3's dust-floor invariant). balanceHighCol/balanceLowCol
// name the table's high/low big-int columns.
func DustFloorExclusion(balanceHighCol, balanceLowCol string) string {
	return fmt.Sprintf("NOT (%s = 0 AND %s < 1000000000)", balanceHighCol, balanceLowCol)
}

// BalanceAtLeast returns a WHERE fragment comparing a (high, low) big-int
// column pair against a minimum threshold split the same way
// bigint.Deconstruct splits it, reused by both the payable and receivable
// "top N at least minBalance" queries.
func BalanceAtLeast(balanceHighCol, balanceLowCol string) string {
	return fmt.Sprintf(
		"(%s > ? OR (%s = ? AND %s >= ?))",
		balanceHighCol, balanceHighCol, balanceLowCol,
	)
}

// BalanceBelow is BalanceAtLeast's strict-less-than counterpart, used by
// the receivable DAO's paid-delinquency query.
func BalanceBelow(balanceHighCol, balanceLowCol string) string {
	return fmt.Sprintf(
		"(%s < ? OR (%s = ? AND %s < ?))",
		balanceHighCol, balanceHighCol, balanceLowCol,
	)
}
