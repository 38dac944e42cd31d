package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income   Kind = "income"
	Expense  Kind = "expense"
	Transfer Kind = "transfer"
)

type (
	// Kind tags a transaction with its monetary direction.
	Kind string

	Account struct {
		ID        string
		Name      string
		GoalID    string // savings goal this account feeds, empty if none
		Balance   Money
		Opening   Money // balance at creation, before any transactions
		CreatedAt time.Time
		DeletedAt *time.Time
	}

	Transaction struct {
		ID             string
		AccountID      string
		CounterpartyID string // destination account, transfers only
		Kind           Kind
		Amount         Money
		Description    string
		CreatedAt      time.Time
		UpdatedAt      time.Time
		DeletedAt      *time.Time
	}

	// Split attributes a portion of a transaction's amount to a category.
	// Splits live and die with their parent transaction.
	Split struct {
		CategoryID string
		Amount     Money
	}

	Goal struct {
		ID        string
		Name      string
		Target    Money
		CreatedAt time.Time
	}

	// GoalProgress is derived from current account balances on every read,
	// never stored.
	GoalProgress struct {
		GoalID  string
		Name    string
		Target  Money
		Saved   Money
		Percent float64
	}

	// Delta is one signed balance adjustment produced by a transaction.
	Delta struct {
		AccountID string
		Cents     int64
	}
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrOverflow      = errors.New("amount out of range")
	ErrConflict      = errors.New("concurrent modification")
	ErrInvalidKind   = errors.New("invalid transaction kind")
	ErrEmptyAccount  = errors.New("empty account id")
	ErrSameAccount   = errors.New("transfer requires two distinct accounts")
	ErrSplitMismatch = errors.New("split amounts do not sum to transaction amount")
)

func (k Kind) Valid() bool {
	switch k {
	case Income, Expense, Transfer:
		return true
	}
	return false
}

// Deltas maps a transaction to the signed balance adjustments it causes.
// Income credits the owning account, expense debits it, a transfer debits
// the source and credits the destination by the same amount.
func (t Transaction) Deltas() []Delta {
	switch t.Kind {
	case Income:
		return []Delta{{AccountID: t.AccountID, Cents: t.Amount.Cents}}
	case Expense:
		return []Delta{{AccountID: t.AccountID, Cents: -t.Amount.Cents}}
	case Transfer:
		return []Delta{
			{AccountID: t.AccountID, Cents: -t.Amount.Cents},
			{AccountID: t.CounterpartyID, Cents: t.Amount.Cents},
		}
	}
	return nil
}

// Inverse returns the adjustments that undo Deltas. Used when a transaction
// is soft-deleted or its old effect is replaced during an edit.
func (t Transaction) Inverse() []Delta {
	deltas := t.Deltas()
	inverse := make([]Delta, len(deltas))
	for i, d := range deltas {
		inverse[i] = Delta{AccountID: d.AccountID, Cents: -d.Cents}
	}
	return inverse
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrEmptyAccount
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if len(t.Description) > 200 {
		return fmt.Errorf("%w: description too long (max 200 characters)", ErrValidation)
	}
	if t.Kind == Transfer {
		if strings.TrimSpace(t.CounterpartyID) == "" {
			return fmt.Errorf("%w: transfer requires a counterparty account", ErrValidation)
		}
		if t.CounterpartyID == t.AccountID {
			return ErrSameAccount
		}
	} else if t.CounterpartyID != "" {
		return fmt.Errorf("%w: counterparty account only valid for transfers", ErrValidation)
	}
	return nil
}

// ValidateSplits checks that every portion is positive and that the portions
// sum to the parent amount. An empty split set is always valid.
func ValidateSplits(amount Money, splits []Split) error {
	if len(splits) == 0 {
		return nil
	}
	var sum int64
	seen := make(map[string]bool, len(splits))
	for _, s := range splits {
		if strings.TrimSpace(s.CategoryID) == "" {
			return fmt.Errorf("%w: empty split category", ErrValidation)
		}
		if seen[s.CategoryID] {
			return fmt.Errorf("%w: duplicate split category %s", ErrValidation, s.CategoryID)
		}
		seen[s.CategoryID] = true
		if err := s.Amount.Validate(); err != nil {
			return err
		}
		next, err := Money{Cents: sum}.CheckedAdd(s.Amount.Cents)
		if err != nil {
			return err
		}
		sum = next.Cents
	}
	if sum != amount.Cents {
		return ErrSplitMismatch
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("%w: empty goal name", ErrValidation)
	}
	return g.Target.Validate()
}
