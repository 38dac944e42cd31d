package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"saldo/internal/core"
)

const transactionColumns = `id, account_id, counterparty_account_id, kind,
	amount_cents, description, created_at, updated_at, deleted_at`

// InsertTransaction persists a new, non-deleted transaction row.
func (tx *Tx) InsertTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	counterparty := sql.NullString{String: t.CounterpartyID, Valid: t.CounterpartyID != ""}
	_, err := tx.tx.ExecContext(ctx,
		`INSERT INTO transactions
		 (id, account_id, counterparty_account_id, kind, amount_cents, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, counterparty, string(t.Kind), t.Amount.Cents,
		t.Description, t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// SoftDeleteTransaction marks a transaction deleted if and only if it is
// still active. The conditional write is the guard against double
// reversal: two concurrent deletes of the same id race on it, and only
// the one that flipped the marker reverses the balance.
func (tx *Tx) SoftDeleteTransaction(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := tx.tx.ExecContext(ctx,
		`UPDATE transactions SET deleted_at = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		at.UTC(), at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("soft delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("soft delete rows affected: %w", err)
	}
	return n == 1, nil
}

// UpdateTransaction rewrites the mutable fields of an active transaction.
func (tx *Tx) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	counterparty := sql.NullString{String: t.CounterpartyID, Valid: t.CounterpartyID != ""}
	res, err := tx.tx.ExecContext(ctx,
		`UPDATE transactions
		 SET account_id = ?, counterparty_account_id = ?, kind = ?, amount_cents = ?,
		     description = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		t.AccountID, counterparty, string(t.Kind), t.Amount.Cents,
		t.Description, t.UpdatedAt.UTC(), t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

// GetTransaction reads a transaction inside the unit of work, including
// soft-deleted rows. The engine reads the current effect through this
// before reversing it, in the same Tx as the soft-delete write.
func (tx *Tx) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return getTransaction(ctx, tx.tx, id)
}

// Transaction reads a transaction outside any unit of work.
func (r *Repository) Transaction(ctx context.Context, id string) (core.Transaction, error) {
	return getTransaction(ctx, r.db, id)
}

func getTransaction(ctx context.Context, q querier, id string) (core.Transaction, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)

	var (
		t            core.Transaction
		counterparty sql.NullString
		kind         string
		createdAt    sql.NullTime
		updatedAt    sql.NullTime
		deletedAt    sql.NullTime
	)
	err := row.Scan(&t.ID, &t.AccountID, &counterparty, &kind, &t.Amount.Cents,
		&t.Description, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.CounterpartyID = counterparty.String
	t.Kind = core.Kind(kind)
	t.CreatedAt = createdAt.Time
	t.UpdatedAt = updatedAt.Time
	if deletedAt.Valid {
		d := deletedAt.Time
		t.DeletedAt = &d
	}
	return t, nil
}

// ListTransactions returns the active transactions owned by an account,
// oldest first.
func (r *Repository) ListTransactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE account_id = ? AND deleted_at IS NULL
		 ORDER BY created_at`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t            core.Transaction
			counterparty sql.NullString
			kind         string
			createdAt    sql.NullTime
			updatedAt    sql.NullTime
			deletedAt    sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &counterparty, &kind, &t.Amount.Cents,
			&t.Description, &createdAt, &updatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.CounterpartyID = counterparty.String
		t.Kind = core.Kind(kind)
		t.CreatedAt = createdAt.Time
		t.UpdatedAt = updatedAt.Time
		out = append(out, t)
	}
	return out, rows.Err()
}
