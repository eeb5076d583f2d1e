package threshold

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seed scenario 3 (spec.md section 8).
func seedThresholds() PaymentThresholds {
	return PaymentThresholds{
		MaturityThresholdSec:     333,
		PaymentGracePeriodSec:    444,
		PermanentDebtAllowedGwei: 4444,
		DebtThresholdGwei:        8888,
		ThresholdIntervalSec:     1_111_111,
	}
}

func TestCurveAtSeedScenario(t *testing.T) {
	th := seedThresholds()

	got := CurveAt(333, th)
	require.NotNil(t, got)
	assert.Equal(t, gweiToWeiInt(8888).String(), got.String())

	got = CurveAt(333+555_555, th)
	require.NotNil(t, got)
	assert.Equal(t, gweiToWeiInt(6666).String(), got.String())

	got = CurveAt(333+1_111_111, th)
	require.NotNil(t, got)
	assert.Equal(t, gweiToWeiInt(4444).String(), got.String())
}

func TestCurveAtBeforeMaturityIsInfinite(t *testing.T) {
	th := seedThresholds()
	assert.Nil(t, CurveAt(332, th))
	assert.Nil(t, CurveAt(0, th))
}

func TestCurveAtBeyondFarCornerIsPermanentAllowance(t *testing.T) {
	th := seedThresholds()
	got := CurveAt(333+1_111_111+999, th)
	require.NotNil(t, got)
	assert.Equal(t, gweiToWeiInt(4444).String(), got.String())
}

func TestIsQualifiedBoundary(t *testing.T) {
	th := seedThresholds()
	curve := CurveAt(333, th)

	atCurve := new(big.Int).Set(curve)
	assert.False(t, IsQualified(atCurve, 333, th), "balance at the curve is not qualified")

	aboveCurve := new(big.Int).Add(curve, big.NewInt(1))
	assert.True(t, IsQualified(aboveCurve, 333, th))
}

func TestIsInnocentAgeAndBalance(t *testing.T) {
	th := seedThresholds()
	assert.True(t, IsInnocentAge(100, th))
	assert.False(t, IsInnocentAge(333, th))

	assert.True(t, IsInnocentBalance(gweiToWeiInt(4444), th))
	assert.False(t, IsInnocentBalance(gweiToWeiInt(4445), th))
}
