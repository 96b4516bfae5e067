// Package money converts between integer minor units and decimal strings.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// Format renders cents as a major-unit string with two decimals, e.g. 6000 -> "60.00".
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// Parse converts a major-unit decimal string into cents. More than two
// fractional digits are rejected rather than rounded.
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return FromDecimal(d)
}

// FromDecimal converts a major-unit amount into cents.
func FromDecimal(d decimal.Decimal) (int64, error) {
	minor := d.Mul(hundred)
	if !minor.IsInteger() {
		return 0, ErrInvalidAmount
	}
	return minor.IntPart(), nil
}

// RoundUp rounds cents up to the next multiple of step.
func RoundUp(cents, step int64) int64 {
	if step <= 0 || cents%step == 0 {
		return cents
	}
	if cents < 0 {
		return cents - cents%step
	}
	return (cents/step + 1) * step
}
