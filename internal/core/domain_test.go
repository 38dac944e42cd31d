package core

import (
	"errors"
	"testing"
)

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{Income, Expense, Transfer} {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	for _, k := range []Kind{"", "deposit", "INCOME"} {
		if k.Valid() {
			t.Errorf("%q should be invalid", k)
		}
	}
}

func TestTransactionDeltas(t *testing.T) {
	cases := []struct {
		name string
		txn  Transaction
		want []Delta
	}{
		{
			name: "income credits owner",
			txn:  Transaction{AccountID: "a", Kind: Income, Amount: Money{Cents: 500}},
			want: []Delta{{AccountID: "a", Cents: 500}},
		},
		{
			name: "expense debits owner",
			txn:  Transaction{AccountID: "a", Kind: Expense, Amount: Money{Cents: 500}},
			want: []Delta{{AccountID: "a", Cents: -500}},
		},
		{
			name: "transfer debits source and credits destination",
			txn:  Transaction{AccountID: "a", CounterpartyID: "b", Kind: Transfer, Amount: Money{Cents: 500}},
			want: []Delta{{AccountID: "a", Cents: -500}, {AccountID: "b", Cents: 500}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.txn.Deltas()
			if len(got) != len(tc.want) {
				t.Fatalf("got %d deltas, want %d", len(got), len(tc.want))
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("delta[%d] = %+v, want %+v", i, got[i], tc.want[i])
				}
			}
			// The inverse must cancel the effect delta for delta.
			inv := tc.txn.Inverse()
			for i := range got {
				if inv[i].AccountID != got[i].AccountID || inv[i].Cents != -got[i].Cents {
					t.Errorf("inverse[%d] = %+v does not cancel %+v", i, inv[i], got[i])
				}
			}
		})
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{AccountID: "a", Kind: Expense, Amount: Money{Cents: 100}, Description: "groceries"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	cases := []struct {
		name string
		txn  Transaction
		want error
	}{
		{"empty account", Transaction{Kind: Expense, Amount: Money{Cents: 100}}, ErrEmptyAccount},
		{"bad kind", Transaction{AccountID: "a", Kind: "refund", Amount: Money{Cents: 100}}, ErrInvalidKind},
		{"zero amount", Transaction{AccountID: "a", Kind: Income, Amount: Money{Cents: 0}}, ErrInvalidAmount},
		{"negative amount", Transaction{AccountID: "a", Kind: Income, Amount: Money{Cents: -5}}, ErrInvalidAmount},
		{"transfer to self", Transaction{AccountID: "a", CounterpartyID: "a", Kind: Transfer, Amount: Money{Cents: 100}}, ErrSameAccount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.txn.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	t.Run("transfer without counterparty", func(t *testing.T) {
		txn := Transaction{AccountID: "a", Kind: Transfer, Amount: Money{Cents: 100}}
		if err := txn.Validate(); err == nil {
			t.Fatal("expected error for transfer without counterparty")
		}
	})
	t.Run("counterparty on expense", func(t *testing.T) {
		txn := Transaction{AccountID: "a", CounterpartyID: "b", Kind: Expense, Amount: Money{Cents: 100}}
		if err := txn.Validate(); err == nil {
			t.Fatal("expected error for counterparty on non-transfer")
		}
	})
}

func TestValidateSplits(t *testing.T) {
	amount := Money{Cents: 30000}

	if err := ValidateSplits(amount, nil); err != nil {
		t.Fatalf("no splits should be valid: %v", err)
	}
	ok := []Split{
		{CategoryID: "food", Amount: Money{Cents: 20000}},
		{CategoryID: "household", Amount: Money{Cents: 10000}},
	}
	if err := ValidateSplits(amount, ok); err != nil {
		t.Fatalf("matching splits rejected: %v", err)
	}

	short := []Split{{CategoryID: "food", Amount: Money{Cents: 29999}}}
	if err := ValidateSplits(amount, short); !errors.Is(err, ErrSplitMismatch) {
		t.Fatalf("expected ErrSplitMismatch, got %v", err)
	}
	negative := []Split{
		{CategoryID: "food", Amount: Money{Cents: 40000}},
		{CategoryID: "household", Amount: Money{Cents: -10000}},
	}
	if err := ValidateSplits(amount, negative); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	duplicate := []Split{
		{CategoryID: "food", Amount: Money{Cents: 15000}},
		{CategoryID: "food", Amount: Money{Cents: 15000}},
	}
	if err := ValidateSplits(amount, duplicate); err == nil {
		t.Fatal("expected error for duplicate category")
	}
}
