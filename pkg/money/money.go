// Package money converts between API dollar amounts and stored cents.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNegative  = errors.New("amount must not be negative")
	ErrPrecision = errors.New("amount has more than 2 decimal places")
)

var hundred = decimal.NewFromInt(100)

// ToCents converts a dollar amount to cents. Sub-cent amounts are rejected
// rather than rounded.
func ToCents(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, ErrNegative
	}
	cents := d.Mul(hundred)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, ErrPrecision
	}
	return cents.IntPart(), nil
}

// Parse reads a dollar string such as "12.50".
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return ToCents(d)
}

// FromCents returns the dollar value of cents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Format renders cents as a fixed two-decimal dollar string.
func Format(cents int64) string {
	return FromCents(cents).StringFixed(2)
}
