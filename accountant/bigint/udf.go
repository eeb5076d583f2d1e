package bigint

import (
	"fmt"
	"math/big"

	sqlite "modernc.org/sqlite"
)

// RegisterSlopeDropFunctions below installs the two user-defined scalar
// functions for calls from inside a WHERE clause (spec.md section 4.2):
// slope_drop_high_bytes(start_gwei, slope, age) and
// slope_drop_low_bytes(start_gwei, slope, age) each return one half of
// (start_gwei * 10^9) + slope * age, computed in 128-bit arithmetic.
const gweiToWei = 1_000_000_000

// slopeDrop computes the full 128-bit value shared by both halves of the
// UDF pair, after validating the inputs the threshold curve is only ever
// called with: slope must be negative (the curve always declines with
// age) and age must be non-negative.
func slopeDrop(startGwei, slope, age int64) (*big.Int, error) {
	if slope >= 0 {
		return nil, fmt.Errorf("bigint: slope_drop_bytes: slope must be negative, got %d", slope)
	}
	if age < 0 {
		return nil, fmt.Errorf("bigint: slope_drop_bytes: age must be non-negative, got %d", age)
	}

	start := new(big.Int).Mul(big.NewInt(startGwei), big.NewInt(gweiToWei))
	drop := new(big.Int).Mul(big.NewInt(slope), big.NewInt(age))
	return start.Add(start, drop), nil
}

// RegisterSlopeDropFunctions registers slope_drop_high_bytes and
// slope_drop_low_bytes on conn. Must be called on every connection before
// its first use in a delinquency query (spec.md section 6).
func RegisterSlopeDropFunctions(conn *sqlite.Conn) error {
	err := sqlite.RegisterDeterministicScalarFunction(
		"slope_drop_high_bytes", 3,
		func(ctx *sqlite.FunctionContext, args []driverValue) (driverValue, error) {
			startGwei, slope, age, err := threeInt64Args(args)
			if err != nil {
				return nil, err
			}
			n, err := slopeDrop(startGwei, slope, age)
			if err != nil {
				return nil, err
			}
			high, _ := Deconstruct(n)
			return high, nil
		},
	)
	if err != nil {
		return fmt.Errorf("bigint: registering slope_drop_high_bytes: %w", err)
	}

	err = sqlite.RegisterDeterministicScalarFunction(
		"slope_drop_low_bytes", 3,
		func(ctx *sqlite.FunctionContext, args []driverValue) (driverValue, error) {
			startGwei, slope, age, err := threeInt64Args(args)
			if err != nil {
				return nil, err
			}
			n, err := slopeDrop(startGwei, slope, age)
			if err != nil {
				return nil, err
			}
			_, low := Deconstruct(n)
			return low, nil
		},
	)
	if err != nil {
		return fmt.Errorf("bigint: registering slope_drop_low_bytes: %w", err)
	}

	return nil
}

// driverValue aliases the driver.Value the UDF callback exchanges with
// the engine, named locally so the rest of this file reads like the
// spec's UDF signature rather than database/sql/driver boilerplate.
type driverValue = interface{}

func threeInt64Args(args []driverValue) (startGwei, slope, age int64, err error) {
	if len(args) != 3 {
		return 0, 0, 0, fmt.Errorf("bigint: slope_drop_bytes: expected 3 arguments, got %d", len(args))
	}
	vals := make([]int64, 3)
	for i, a := range args {
		n, ok := a.(int64)
		if !ok {
			return 0, 0, 0, fmt.Errorf("bigint: slope_drop_bytes: argument %d is not an integer", i)
		}
		vals[i] = n
	}
	return vals[0], vals[1], vals[2], nil
}
