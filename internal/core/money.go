// Package core holds the domain model for the ledger: money arithmetic,
// transaction kinds and their signed balance effects, and validation.
package core

import "math"

// Money is an amount in the smallest currency unit (cents). Balance
// arithmetic must go through the checked operations; plain + and - on
// cents can wrap silently and corrupt a balance.
type Money struct {
	Cents int64
}

// Validate rejects non-positive nominal amounts. Signs are never carried
// on the amount itself, they come from the transaction kind.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// CheckedAdd returns m plus delta, failing with ErrOverflow when the true
// result would leave the int64 range in either direction. delta may be
// negative.
func (m Money) CheckedAdd(delta int64) (Money, error) {
	if delta > 0 && m.Cents > math.MaxInt64-delta {
		return Money{}, ErrOverflow
	}
	if delta < 0 && m.Cents < math.MinInt64-delta {
		return Money{}, ErrOverflow
	}
	return Money{Cents: m.Cents + delta}, nil
}

// CheckedSub returns m minus delta with the same overflow guarantees as
// CheckedAdd.
func (m Money) CheckedSub(delta int64) (Money, error) {
	if delta == math.MinInt64 {
		return Money{}, ErrOverflow
	}
	return m.CheckedAdd(-delta)
}
