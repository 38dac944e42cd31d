package storage

import (
	"context"
	"fmt"

	"saldo/internal/core"
)

// ReplaceSplits hard-deletes any existing allocations for the transaction
// and inserts the new set, inside the caller's unit of work.
func (tx *Tx) ReplaceSplits(ctx context.Context, transactionID string, splits []core.Split) error {
	if err := tx.DeleteSplits(ctx, transactionID); err != nil {
		return err
	}
	for _, s := range splits {
		if _, err := tx.tx.ExecContext(ctx,
			`INSERT INTO transaction_splits (transaction_id, category_id, amount_cents)
			 VALUES (?, ?, ?)`,
			transactionID, s.CategoryID, s.Amount.Cents); err != nil {
			return fmt.Errorf("insert split %s/%s: %w", transactionID, s.CategoryID, err)
		}
	}
	return nil
}

// DeleteSplits hard-deletes every allocation owned by the transaction.
// Splits have no independent lifecycle: the engine calls this the moment
// the parent transaction is soft-deleted.
func (tx *Tx) DeleteSplits(ctx context.Context, transactionID string) error {
	if _, err := tx.tx.ExecContext(ctx,
		`DELETE FROM transaction_splits WHERE transaction_id = ?`, transactionID); err != nil {
		return fmt.Errorf("delete splits of %s: %w", transactionID, err)
	}
	return nil
}

// Splits returns the allocations of a transaction inside the unit of work.
func (tx *Tx) Splits(ctx context.Context, transactionID string) ([]core.Split, error) {
	return listSplits(ctx, tx.tx, transactionID)
}

// Splits returns the allocations of a transaction.
func (r *Repository) Splits(ctx context.Context, transactionID string) ([]core.Split, error) {
	return listSplits(ctx, r.db, transactionID)
}

func listSplits(ctx context.Context, q querier, transactionID string) ([]core.Split, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT category_id, amount_cents FROM transaction_splits
		 WHERE transaction_id = ? ORDER BY category_id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list splits of %s: %w", transactionID, err)
	}
	defer rows.Close()

	var out []core.Split
	for rows.Next() {
		var s core.Split
		if err := rows.Scan(&s.CategoryID, &s.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan split: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
