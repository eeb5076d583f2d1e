package adjustment

import (
	"math"
	"math/big"
	"time"

	"github.com/masq-node/accountant/accountant/ledger"
	"github.com/masq-node/accountant/accountant/threshold"
)

// CriterionCalculator computes one component of an account's weight in
// the payment adjustment algorithm (spec.md section 4.5 step 1). New
// criteria can be registered on an Adjuster without touching the
// recursion itself.
type CriterionCalculator interface {
	Weight(acct ledger.PayableAccount, now time.Time, t threshold.PaymentThresholds) *big.Int
}

// ageCriterion weights older debts more heavily: a peer who has been
// waiting longer is prioritized over one with an equal balance but a
// younger debt.
type ageCriterion struct{}

func (ageCriterion) Weight(acct ledger.PayableAccount, now time.Time, _ threshold.PaymentThresholds) *big.Int {
	age := acct.AgeSec(now)
	if age < 0 {
		age = 0
	}
	return big.NewInt(age)
}

// balanceCriterion weights larger debts more heavily: the weight is
// balance * log10(balance), so a 10x larger balance gets somewhat more
// than 10x the weight — matching the reference implementation's
// balance * log10(balance) blend.
type balanceCriterion struct{}

func (balanceCriterion) Weight(acct ledger.PayableAccount, _ time.Time, _ threshold.PaymentThresholds) *big.Int {
	balance := acct.BalanceWei
	if balance.Sign() <= 0 {
		return big.NewInt(0)
	}

	// log10(balance) via bit length keeps this free of float64 precision
	// loss for values near the 128-bit window; accurate to within a
	// fraction of a decimal digit, which only affects relative ordering
	// at the margins and never the sign of any comparison that matters
	// (outweighed/disqualification are both strict inequalities).
	log10 := float64(balance.BitLen()) * math.Log10(2)
	scaled := int64(log10 * 1000)

	weight := new(big.Int).Mul(balance, big.NewInt(scaled))
	return weight.Div(weight, big.NewInt(1000))
}

// DefaultCalculators returns the standard age+balance criterion set.
func DefaultCalculators() []CriterionCalculator {
	return []CriterionCalculator{ageCriterion{}, balanceCriterion{}}
}

// WeightOf sums every registered calculator's contribution for acct.
func WeightOf(acct ledger.PayableAccount, now time.Time, t threshold.PaymentThresholds, calculators []CriterionCalculator) *big.Int {
	sum := new(big.Int)
	for _, c := range calculators {
		sum.Add(sum, c.Weight(acct, now, t))
	}
	return sum
}
