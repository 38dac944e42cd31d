// Package worker verifies the ledger invariant from the outside: for
// every account, the cached balance must equal the summed effect of its
// non-deleted transactions. The worker never repairs balances, it only
// detects and reports drift.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/storage"
)

// ErrBalanceDrift reports a mismatch between the cached balance and the
// balance recomputed from transaction history.
var ErrBalanceDrift = errors.New("balance drift detected")

// StatementExporter appends committed transactions to an external
// statement, e.g. a Google Sheets tab.
type StatementExporter interface {
	AppendTransaction(ctx context.Context, t core.Transaction) error
}

type AuditWorker struct {
	storage  *storage.Repository
	exporter StatementExporter // nil disables statement export
}

func NewAuditWorker(repo *storage.Repository, exporter StatementExporter) *AuditWorker {
	return &AuditWorker{
		storage:  repo,
		exporter: exporter,
	}
}

// HandleBalanceChanged processes one balance-changed event: audit every
// touched account, then export newly created transactions. Drift is
// reported through logs rather than the return value — requeueing the
// event cannot fix a persistent inconsistency.
func (w *AuditWorker) HandleBalanceChanged(ctx context.Context, msg *amqp.BalanceChangedMessage) error {
	for _, accountID := range msg.AccountIDs {
		if err := w.AuditAccount(ctx, accountID); err != nil {
			if errors.Is(err, ErrBalanceDrift) {
				continue // already logged, not retryable
			}
			return fmt.Errorf("audit account %s: %w", accountID, err)
		}
	}

	if msg.Op == amqp.OpCreated && w.exporter != nil {
		txn, err := w.storage.Transaction(ctx, msg.TransactionID)
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Transaction vanished before export",
				"transaction_id", msg.TransactionID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("load transaction for export: %w", err)
		}
		if err := w.exporter.AppendTransaction(ctx, txn); err != nil {
			return fmt.Errorf("export transaction %s: %w", msg.TransactionID, err)
		}
		slog.InfoContext(ctx, "Transaction exported to statement",
			"transaction_id", msg.TransactionID)
	}

	return nil
}

// AuditAccount recomputes one account's balance as opening balance plus
// the summed effect of its non-deleted transactions, and compares that
// to the cached column. Soft-deleted accounts are skipped.
func (w *AuditWorker) AuditAccount(ctx context.Context, accountID string) error {
	account, err := w.storage.Account(ctx, accountID)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if account.DeletedAt != nil {
		return nil
	}

	effects, err := w.storage.RecomputeBalance(ctx, accountID)
	if err != nil {
		return err
	}
	expected, err := account.Opening.CheckedAdd(effects.Cents)
	if err != nil {
		return err
	}

	if expected.Cents != account.Balance.Cents {
		slog.ErrorContext(ctx, "Balance drift detected",
			"account_id", accountID,
			"balance_cents", account.Balance.Cents,
			"expected_cents", expected.Cents,
			"drift_cents", account.Balance.Cents-expected.Cents)
		return fmt.Errorf("account %s: cached %d, expected %d: %w",
			accountID, account.Balance.Cents, expected.Cents, ErrBalanceDrift)
	}
	return nil
}

// Sweep audits every active account and returns how many were checked
// and how many drifted.
func (w *AuditWorker) Sweep(ctx context.Context) (audited, drifted int, err error) {
	ids, err := w.storage.ActiveAccountIDs(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list accounts: %w", err)
	}
	for _, id := range ids {
		if err := w.AuditAccount(ctx, id); err != nil {
			if errors.Is(err, ErrBalanceDrift) {
				drifted++
				continue
			}
			return audited, drifted, err
		}
		audited++
	}
	return audited, drifted, nil
}

// Run executes a full sweep every interval until ctx is done.
func (w *AuditWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			audited, drifted, err := w.Sweep(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "Audit sweep failed", "error", err)
				continue
			}
			if drifted > 0 {
				slog.ErrorContext(ctx, "Audit sweep found drifted accounts",
					"audited", audited, "drifted", drifted)
			} else {
				slog.DebugContext(ctx, "Audit sweep clean", "audited", audited)
			}
		}
	}
}
