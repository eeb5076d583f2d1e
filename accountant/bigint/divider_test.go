package bigint

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconstituteDeconstructRoundTrip(t *testing.T) {
	cases := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(-1),
		big.NewInt(5_555_555_555),
		new(big.Int).Neg(big.NewInt(5_555_555_555)),
		maxDeconstructible,
		minDeconstructible,
	}
	for _, n := range cases {
		high, low := Deconstruct(n)
		got := Reconstitute(high, low)
		assert.Equal(t, n.String(), got.String())
		assert.GreaterOrEqual(t, low, int64(0), "low half must always be non-negative")
	}
}

func TestDeconstructOutOfRangePanics(t *testing.T) {
	tooBig := new(big.Int).Add(maxDeconstructible, big.NewInt(1))
	assert.Panics(t, func() { Deconstruct(tooBig) })

	tooSmall := new(big.Int).Sub(minDeconstructible, big.NewInt(1))
	assert.Panics(t, func() { Deconstruct(tooSmall) })
}

func TestReconstituteNegativeLowPanics(t *testing.T) {
	assert.Panics(t, func() { Reconstitute(0, -1) })
}

func TestFitsMatchesDeconstructPanicBoundary(t *testing.T) {
	assert.True(t, Fits(maxDeconstructible))
	assert.True(t, Fits(minDeconstructible))

	tooBig := new(big.Int).Add(maxDeconstructible, big.NewInt(1))
	tooSmall := new(big.Int).Sub(minDeconstructible, big.NewInt(1))
	assert.False(t, Fits(tooBig))
	assert.False(t, Fits(tooSmall))
}

func TestOrderingMatchesOriginalValues(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		n1 := randomInRange(r)
		n2 := randomInRange(r)

		h1, l1 := Deconstruct(n1)
		h2, l2 := Deconstruct(n2)

		wantCmp := n1.Cmp(n2)
		gotCmp := Compare(h1, l1, h2, l2)
		require.Equal(t, sign(wantCmp), sign(gotCmp), "n1=%s n2=%s", n1, n2)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func randomInRange(r *rand.Rand) *big.Int {
	span := new(big.Int).Sub(maxDeconstructible, minDeconstructible)
	offset := new(big.Int).Rand(r, span)
	return new(big.Int).Add(minDeconstructible, offset)
}

// seed scenario 1 (spec.md section 8): overflow-update arithmetic.
func TestOverflowCompensationArithmeticSeedScenario(t *testing.T) {
	startHigh := int64(55)
	maxLow := int64(0x7FFF_FFFF_FFFF_FFFF) // the low half's own "i64::MAX"
	startLow := maxLow - 5

	requestedHigh := int64(1)
	requestedLow := int64(6)

	newHigh := startHigh + requestedHigh + 1
	newLow := (startLow + requestedLow) & 0x7FFF_FFFF_FFFF_FFFF

	assert.Equal(t, int64(57), newHigh)
	assert.Equal(t, int64(0), newLow)

	original := Reconstitute(startHigh, startLow)
	change := Reconstitute(requestedHigh, requestedLow)
	want := new(big.Int).Add(original, change)

	got := Reconstitute(newHigh, newLow)
	assert.Equal(t, want.String(), got.String())
}
