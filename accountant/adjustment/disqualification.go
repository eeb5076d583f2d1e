package adjustment

import (
	"math/big"
	"time"

	"github.com/masq-node/accountant/accountant/ledger"
	"github.com/masq-node/accountant/accountant/threshold"
)

var gweiToWei = big.NewInt(1_000_000_000)

// DisqualificationArbiter computes the minimum payment an account must
// receive to be worth including in a shrunken batch (spec.md section
// 4.5 step 5): a function of the account's threshold intercept and its
// permanent-debt allowance.
type DisqualificationArbiter struct{}

// MinAcceptableWei returns the floor below which paying acct isn't worth
// the transaction: the amount by which its balance exceeds the curve's
// current threshold, bounded below by the permanent-debt allowance
// (a payment smaller than that allowance wouldn't even bring the debt
// back under the innocence floor).
func (DisqualificationArbiter) MinAcceptableWei(acct ledger.PayableAccount, now time.Time, t threshold.PaymentThresholds) *big.Int {
	permanentAllowance := new(big.Int).Mul(big.NewInt(t.PermanentDebtAllowedGwei), gweiToWei)

	age := acct.AgeSec(now)
	intercept := threshold.CurveAt(age, t)
	if intercept == nil {
		return permanentAllowance
	}

	overage := new(big.Int).Sub(acct.BalanceWei, intercept)
	if overage.Cmp(permanentAllowance) < 0 {
		return permanentAllowance
	}
	return overage
}
