package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Monetary values are arbitrary-precision decimals. Customer-facing prices
// always carry two decimal places and round up, never down, on money owed.

// AmountScale is the number of decimal places for customer-facing amounts.
const AmountScale = 2

// ParseAmount parses a decimal string into an amount.
// Returns an error for malformed input.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("types: parse amount %q: %w", s, err)
	}
	return d, nil
}

// MustAmount is like ParseAmount but panics on error.
// Use for hardcoded constants and tests.
func MustAmount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// RoundUpAmount rounds d up (toward positive infinity) to AmountScale
// decimal places.
func RoundUpAmount(d decimal.Decimal) decimal.Decimal {
	return d.RoundCeil(AmountScale)
}

// FormatAmount renders d with exactly AmountScale decimal places,
// the form payment gateways expect for the "money" field.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}

// IsPositiveAmount reports whether d is strictly greater than zero.
func IsPositiveAmount(d decimal.Decimal) bool {
	return d.IsPositive()
}
