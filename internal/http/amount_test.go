package http

import (
	"errors"
	"testing"

	"saldo/internal/core"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in        string
		wantCents int64
		wantErr   error
	}{
		{in: "12.34", wantCents: 1234},
		{in: "0.05", wantCents: 5},
		{in: "300", wantCents: 30000},
		{in: "1,5", wantErr: core.ErrInvalidAmount},
		{in: "abc", wantErr: core.ErrInvalidAmount},
		{in: "", wantErr: core.ErrInvalidAmount},
		{in: "1.999", wantErr: core.ErrInvalidAmount},
		{in: "99999999999999999999", wantErr: core.ErrOverflow},
	}
	for _, tc := range cases {
		got, err := parseAmount(tc.in)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("parseAmount(%q) error = %v, want %v", tc.in, err, tc.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseAmount(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got.Cents != tc.wantCents {
			t.Errorf("parseAmount(%q) = %d, want %d", tc.in, got.Cents, tc.wantCents)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{1234, "12.34"},
		{-1234, "-12.34"},
		{30000, "300.00"},
	}
	for _, tc := range cases {
		if got := formatAmount(core.Money{Cents: tc.cents}); got != tc.want {
			t.Errorf("formatAmount(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
