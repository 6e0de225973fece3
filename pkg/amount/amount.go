// Package amount provides the vault's value type: an unsigned fixed-point
// quantity held as base units. Arithmetic is checked and fails closed on
// overflow instead of wrapping.
package amount

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits a decimal-string amount may
// carry. One whole unit equals 10^Decimals base units.
const Decimals = 8

var (
	ErrOverflow = errors.New("amount overflow")
	ErrNegative = errors.New("amount cannot be negative")
)

var unitScale = decimal.New(1, Decimals)

// Amount is a value quantity in base units.
type Amount uint64

// Zero is the empty amount.
const Zero Amount = 0

// Parse converts a decimal string such as "1000.50" into base units.
// Negative values, more than Decimals fractional digits, and values that do
// not fit in uint64 are rejected.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return Zero, ErrNegative
	}
	scaled := d.Mul(unitScale)
	if !scaled.Equal(scaled.Truncate(0)) {
		return Zero, fmt.Errorf("amount %q exceeds %d decimal places", s, Decimals)
	}
	bi := scaled.BigInt()
	if !bi.IsUint64() {
		return Zero, ErrOverflow
	}
	return Amount(bi.Uint64()), nil
}

// FromBaseUnits wraps a raw base-unit count.
func FromBaseUnits(v uint64) Amount {
	return Amount(v)
}

// BaseUnits returns the raw base-unit count.
func (a Amount) BaseUnits() uint64 {
	return uint64(a)
}

// Add returns a+b, failing closed on overflow.
func (a Amount) Add(b Amount) (Amount, error) {
	if uint64(b) > math.MaxUint64-uint64(a) {
		return Zero, ErrOverflow
	}
	return a + b, nil
}

// Sub returns a-b, failing if b exceeds a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return Zero, ErrNegative
	}
	return a - b, nil
}

// IsZero reports whether the amount is empty.
func (a Amount) IsZero() bool {
	return a == 0
}

// String renders the amount as a decimal string in whole units.
func (a Amount) String() string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(a)), -Decimals).String()
}
