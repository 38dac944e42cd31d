package http

import (
	"fmt"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// parseAmount converts a decimal string like "12.34" into cents. More
// than two fractional digits, values outside int64 cents and malformed
// input are rejected.
func parseAmount(s string) (core.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("invalid amount %q: %w", s, core.ErrInvalidAmount)
	}
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return core.Money{}, fmt.Errorf("amount %q has sub-cent precision: %w", s, core.ErrInvalidAmount)
	}
	big := cents.BigInt()
	if !big.IsInt64() {
		return core.Money{}, fmt.Errorf("amount %q out of range: %w", s, core.ErrOverflow)
	}
	return core.Money{Cents: big.Int64()}, nil
}

// formatAmount renders cents as a decimal string, e.g. 1234 -> "12.34".
func formatAmount(m core.Money) string {
	return decimal.New(m.Cents, -2).StringFixed(2)
}
