package entity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeAmount = errors.New("negative amount")
	ErrSubCent        = errors.New("amount has sub-cent precision")
)

// Money is a fixed-point amount in minor units. The legacy API ships amounts
// as loose decimal numbers; everything internal works in cents so credit
// arithmetic is never done on floats.
type Money struct {
	Cents    int64
	Currency string
}

// ParseAmount converts a legacy decimal string ("812.50") into cents exactly.
// More than two fractional digits is rejected rather than rounded.
func ParseAmount(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	cents := d.Mul(decimal.New(100, 0))
	if !cents.IsInteger() {
		return Money{}, ErrSubCent
	}
	return Money{Cents: cents.IntPart(), Currency: currency}, nil
}

// String renders the amount back in major units for wire payloads and logs.
func (m Money) String() string {
	return decimal.New(m.Cents, -2).StringFixed(2)
}

// CentsToWire renders a raw cents value as a major-unit decimal string.
func CentsToWire(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// Delta is the signed difference between an order's new and previous total,
// in cents. Its sign decides the credit operation direction.
func Delta(originalCents, newCents int64) int64 {
	return newCents - originalCents
}
