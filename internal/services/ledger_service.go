// Package services hosts the balance consistency engine: every mutating
// operation runs inside one storage unit of work that batches the
// transaction row, its split allocations and the balance adjustments, so
// either everything commits or nothing does.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/storage"
)

// EventPublisher announces committed balance changes. A nil publisher
// disables events; the ledger stays consistent without them.
type EventPublisher interface {
	PublishBalanceChanged(ctx context.Context, msg *amqp.BalanceChangedMessage) error
}

type LedgerService struct {
	storage *storage.Repository
	events  EventPublisher
}

func NewLedgerService(repo *storage.Repository, events EventPublisher) *LedgerService {
	return &LedgerService{
		storage: repo,
		events:  events,
	}
}

// NewTransaction is the inbound shape of a create request.
type NewTransaction struct {
	AccountID      string
	CounterpartyID string
	Kind           core.Kind
	Amount         core.Money
	Description    string
	Splits         []core.Split
}

// TransactionPatch carries the fields of an edit. Nil pointers keep the
// current value; a nil Splits slice keeps the current allocations while
// an empty non-nil slice clears them.
type TransactionPatch struct {
	Kind           *core.Kind
	Amount         *core.Money
	CounterpartyID *string
	Description    *string
	Splits         []core.Split
}

// CreateTransaction validates the request, writes the transaction row and
// its splits, and applies the kind's signed deltas to the owning
// account(s), all in one unit of work.
func (s *LedgerService) CreateTransaction(ctx context.Context, in NewTransaction) (core.Transaction, error) {
	now := time.Now().UTC()
	txn := core.Transaction{
		ID:             uuid.NewString(),
		AccountID:      in.AccountID,
		CounterpartyID: in.CounterpartyID,
		Kind:           in.Kind,
		Amount:         in.Amount,
		Description:    in.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := txn.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := core.ValidateSplits(txn.Amount, in.Splits); err != nil {
		return core.Transaction{}, err
	}

	err := s.storage.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		if len(in.Splits) > 0 {
			if err := tx.ReplaceSplits(ctx, txn.ID, in.Splits); err != nil {
				return err
			}
		}
		for _, d := range txn.Deltas() {
			if _, err := tx.ApplyDelta(ctx, d.AccountID, d.Cents); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", txn.ID,
		"account_id", txn.AccountID,
		"kind", txn.Kind,
		"amount_cents", txn.Amount.Cents,
		"splits", len(in.Splits))

	s.publish(ctx, amqp.NewBalanceChangedMessage(txn.ID, affectedAccounts(txn), amqp.OpCreated))
	return txn, nil
}

// DeleteTransaction soft-deletes a transaction and reverses its effect.
// A missing or already-deleted transaction is a successful no-op; the
// conditional soft-delete write decides who reverses under concurrency.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	var (
		txn      core.Transaction
		reversed bool
	)
	err := s.storage.WithTx(ctx, func(tx *storage.Tx) error {
		var err error
		txn, err = tx.GetTransaction(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if txn.DeletedAt != nil {
			return nil
		}

		flipped, err := tx.SoftDeleteTransaction(ctx, id, time.Now().UTC())
		if err != nil {
			return err
		}
		if !flipped {
			// A concurrent delete already performed the reversal.
			return nil
		}
		if err := tx.DeleteSplits(ctx, id); err != nil {
			return err
		}
		for _, d := range txn.Inverse() {
			if _, err := tx.ApplyDelta(ctx, d.AccountID, d.Cents); err != nil {
				return err
			}
		}
		reversed = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if !reversed {
		slog.DebugContext(ctx, "Delete was a no-op", "transaction_id", id)
		return nil
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"transaction_id", id,
		"account_id", txn.AccountID,
		"kind", txn.Kind,
		"amount_cents", txn.Amount.Cents)

	s.publish(ctx, amqp.NewBalanceChangedMessage(id, affectedAccounts(txn), amqp.OpDeleted))
	return nil
}

// UpdateTransaction edits an active transaction by reversing its old
// effect and applying the new one in the same unit of work. The read,
// both adjustments and the field rewrite share the write lock, so a
// concurrent edit cannot slip between read and reversal.
func (s *LedgerService) UpdateTransaction(ctx context.Context, id string, patch TransactionPatch) (core.Transaction, error) {
	var (
		old     core.Transaction
		updated core.Transaction
	)
	err := s.storage.WithTx(ctx, func(tx *storage.Tx) error {
		var err error
		old, err = tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if old.DeletedAt != nil {
			return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
		}

		updated = old
		if patch.Kind != nil {
			updated.Kind = *patch.Kind
		}
		if patch.Amount != nil {
			updated.Amount = *patch.Amount
		}
		if patch.CounterpartyID != nil {
			updated.CounterpartyID = *patch.CounterpartyID
		}
		if patch.Description != nil {
			updated.Description = *patch.Description
		}
		updated.UpdatedAt = time.Now().UTC()

		if err := updated.Validate(); err != nil {
			return err
		}

		splits := patch.Splits
		if splits == nil {
			// Keep the current allocations, but they must still sum to
			// the (possibly changed) amount.
			splits, err = tx.Splits(ctx, id)
			if err != nil {
				return err
			}
		}
		if err := core.ValidateSplits(updated.Amount, splits); err != nil {
			return err
		}

		for _, d := range old.Inverse() {
			if _, err := tx.ApplyDelta(ctx, d.AccountID, d.Cents); err != nil {
				return err
			}
		}
		if err := tx.UpdateTransaction(ctx, updated); err != nil {
			return err
		}
		for _, d := range updated.Deltas() {
			if _, err := tx.ApplyDelta(ctx, d.AccountID, d.Cents); err != nil {
				return err
			}
		}
		return tx.ReplaceSplits(ctx, id, splits)
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction updated",
		"transaction_id", id,
		"kind", updated.Kind,
		"amount_cents", updated.Amount.Cents)

	accounts := affectedAccounts(old)
	for _, a := range affectedAccounts(updated) {
		if !contains(accounts, a) {
			accounts = append(accounts, a)
		}
	}
	s.publish(ctx, amqp.NewBalanceChangedMessage(id, accounts, amqp.OpUpdated))
	return updated, nil
}

// Transaction returns a transaction with its split allocations.
func (s *LedgerService) Transaction(ctx context.Context, id string) (core.Transaction, []core.Split, error) {
	txn, err := s.storage.Transaction(ctx, id)
	if err != nil {
		return core.Transaction{}, nil, err
	}
	splits, err := s.storage.Splits(ctx, id)
	if err != nil {
		return core.Transaction{}, nil, err
	}
	return txn, splits, nil
}

// AccountBalance reads the latest committed balance. Balances are never
// cached outside the ledger; stale reads are not permitted.
func (s *LedgerService) AccountBalance(ctx context.Context, accountID string) (core.Money, error) {
	return s.storage.AccountBalance(ctx, accountID)
}

func (s *LedgerService) publish(ctx context.Context, msg *amqp.BalanceChangedMessage) {
	if s.events == nil {
		return
	}
	// Event publication is post-commit and best effort, mirroring the
	// audit worker's role as a verifier rather than a dependency.
	if err := s.events.PublishBalanceChanged(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish balance changed event",
			"transaction_id", msg.TransactionID, "op", msg.Op, "error", err)
	}
}

func affectedAccounts(t core.Transaction) []string {
	accounts := []string{t.AccountID}
	if t.Kind == core.Transfer && t.CounterpartyID != "" {
		accounts = append(accounts, t.CounterpartyID)
	}
	return accounts
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
