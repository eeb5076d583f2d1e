// Package threshold implements the payment-threshold gauge: the
// three-segment piecewise curve that decides, given a debt's age, the
// minimum balance above which it becomes payable (spec.md section 4.3).
package threshold

import "math/big"

// PaymentThresholds is the process-wide configuration that parameterizes
// the curve. It is loaded once at startup (see config) and threaded
// through scanners and DAO queries as an immutable value, never as
// module-level mutable state (spec.md section 9 design note).
type PaymentThresholds struct {
	MaturityThresholdSec     int64
	PaymentGracePeriodSec    int64
	PermanentDebtAllowedGwei int64
	DebtThresholdGwei        int64
	ThresholdIntervalSec     int64
	UnbanBelowGwei           int64
}

var gweiToWei = big.NewInt(1_000_000_000)

func gweiToWeiInt(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), gweiToWei)
}

// CurveAt returns the threshold, in wei, for a debt of the given age in
// seconds: +infinity (represented as nil) while the debt is younger than
// MaturityThresholdSec, permanent_debt_allowed_gwei once the debt is older
// than MaturityThresholdSec+ThresholdIntervalSec, and a linear
// interpolation between debt_threshold_gwei and permanent_debt_allowed_gwei
// in between.
//
// A nil result means "never due" — CurveAt's caller must treat it as
// larger than any real balance, which IsQualified does.
func CurveAt(ageSec int64, t PaymentThresholds) *big.Int {
	if ageSec < t.MaturityThresholdSec {
		return nil
	}

	farCorner := t.MaturityThresholdSec + t.ThresholdIntervalSec
	if ageSec >= farCorner {
		return gweiToWeiInt(t.PermanentDebtAllowedGwei)
	}

	// Linear interpolation from debt_threshold_gwei (at
	// age == MaturityThresholdSec) down to permanent_debt_allowed_gwei
	// (at age == far corner).
	elapsed := ageSec - t.MaturityThresholdSec
	span := t.ThresholdIntervalSec
	dropGwei := t.DebtThresholdGwei - t.PermanentDebtAllowedGwei

	// thresholdGwei = debt_threshold - round(dropGwei * elapsed / span),
	// done in integer arithmetic with a single division at the end to
	// keep full precision through the multiply; rounded to the nearest
	// gwei (not truncated) to match the curve's literal seed values.
	num := new(big.Int).Mul(big.NewInt(dropGwei), big.NewInt(elapsed))
	num.Add(num, new(big.Int).Div(big.NewInt(span), big.NewInt(2)))
	num.Div(num, big.NewInt(span))

	thresholdGwei := new(big.Int).Sub(big.NewInt(t.DebtThresholdGwei), num)
	return new(big.Int).Mul(thresholdGwei, gweiToWei)
}

// IsQualified reports whether a debt of the given balance and age is
// payable: balance strictly exceeds the curve.
func IsQualified(balanceWei *big.Int, ageSec int64, t PaymentThresholds) bool {
	curve := CurveAt(ageSec, t)
	if curve == nil {
		return false
	}
	return balanceWei.Cmp(curve) > 0
}

// IsInnocentAge reports whether a debt younger than MaturityThresholdSec
// is still within its innocence floor, regardless of balance.
func IsInnocentAge(ageSec int64, t PaymentThresholds) bool {
	return ageSec < t.MaturityThresholdSec
}

// IsInnocentBalance reports whether a balance is at or below the
// permanent-debt allowance, and so can never become delinquent no matter
// how old the debt gets.
func IsInnocentBalance(balanceWei *big.Int, t PaymentThresholds) bool {
	return balanceWei.Cmp(gweiToWeiInt(t.PermanentDebtAllowedGwei)) <= 0
}
