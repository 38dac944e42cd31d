package core

import (
	"errors"
	"math"
	"testing"
)

func TestCheckedAdd(t *testing.T) {
	cases := []struct {
		name  string
		start int64
		delta int64
		want  int64
		ok    bool
	}{
		{"credit", 100000, 30000, 130000, true},
		{"debit", 100000, -30000, 70000, true},
		{"into negative", 0, -500, -500, true},
		{"zero delta", 42, 0, 42, true},
		{"to exact max", math.MaxInt64 - 1, 1, math.MaxInt64, true},
		{"to exact min", math.MinInt64 + 1, -1, math.MinInt64, true},
		{"overflow up", math.MaxInt64, 1, 0, false},
		{"overflow down", math.MinInt64, -1, 0, false},
		{"large overflow up", math.MaxInt64 - 10, 11, 0, false},
		{"large overflow down", math.MinInt64 + 10, -11, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Money{Cents: tc.start}.CheckedAdd(tc.delta)
			if tc.ok {
				if err != nil {
					t.Fatalf("CheckedAdd(%d, %d) unexpected error: %v", tc.start, tc.delta, err)
				}
				if got.Cents != tc.want {
					t.Fatalf("CheckedAdd(%d, %d) = %d, want %d", tc.start, tc.delta, got.Cents, tc.want)
				}
			} else if !errors.Is(err, ErrOverflow) {
				t.Fatalf("CheckedAdd(%d, %d) expected ErrOverflow, got %v", tc.start, tc.delta, err)
			}
		})
	}
}

func TestCheckedSub(t *testing.T) {
	got, err := Money{Cents: 100000}.CheckedSub(30000)
	if err != nil || got.Cents != 70000 {
		t.Fatalf("CheckedSub = %d, err=%v, want 70000", got.Cents, err)
	}

	if _, err := (Money{Cents: math.MinInt64}).CheckedSub(1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow subtracting from min, got %v", err)
	}
	// Negating MinInt64 is itself an overflow.
	if _, err := (Money{Cents: 0}).CheckedSub(math.MinInt64); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow for MinInt64 delta, got %v", err)
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("positive amount should validate: %v", err)
	}
	for _, cents := range []int64{0, -1, -100} {
		if err := (Money{Cents: cents}).Validate(); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%d expected ErrInvalidAmount, got %v", cents, err)
		}
	}
}
