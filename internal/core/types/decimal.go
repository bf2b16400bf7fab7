// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits kept for monetary values.
const MoneyPlaces = 2

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds to two places, half away from zero.
// Amounts here are never negative, so this is round-half-up.
func RoundMoney(m Money) Money {
	return m.Round(MoneyPlaces)
}

// HasMoneyScale reports whether m fits in two fractional digits, the scale
// monetary columns are stored at.
func HasMoneyScale(m Money) bool {
	return m.Equal(RoundMoney(m))
}

// MulQty returns quantity × unit rounded to two places.
func MulQty(unit Money, qty int) Money {
	return RoundMoney(unit.Mul(decimal.NewFromInt(int64(qty))))
}

// FloorZero clamps negative amounts to zero.
func FloorZero(m Money) Money {
	if m.IsNegative() {
		return decimal.Zero
	}
	return m
}
