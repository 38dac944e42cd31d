package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"saldo/internal/core"
)

// CreateAccount inserts an account row. Account metadata is owned by
// account management; the repository only needs enough of it to anchor
// balances and goal membership.
func (r *Repository) CreateAccount(ctx context.Context, a core.Account) error {
	goalID := sql.NullString{String: a.GoalID, Valid: a.GoalID != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, goal_id, balance_cents, opening_cents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, goalID, a.Balance.Cents, a.Opening.Cents, a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// Account returns the full account row, including soft-deleted accounts.
func (r *Repository) Account(ctx context.Context, id string) (core.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx,
		`SELECT id, name, goal_id, balance_cents, opening_cents, created_at, deleted_at
		 FROM accounts WHERE id = ?`, id))
}

// AccountBalance reads the latest committed balance of an active account.
func (r *Repository) AccountBalance(ctx context.Context, id string) (core.Money, error) {
	return accountBalance(ctx, r.db, id)
}

func accountBalance(ctx context.Context, q querier, id string) (core.Money, error) {
	var cents int64
	err := q.QueryRowContext(ctx,
		`SELECT balance_cents FROM accounts WHERE id = ? AND deleted_at IS NULL`,
		id).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("read balance: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// ApplyDelta adjusts an active account's cached balance by a signed
// amount inside the unit of work. The read, the checked arithmetic and
// the write all sit behind the transaction's write lock, so no other
// unit of work can interleave.
func (tx *Tx) ApplyDelta(ctx context.Context, accountID string, delta int64) (core.Money, error) {
	balance, err := accountBalance(ctx, tx.tx, accountID)
	if err != nil {
		return core.Money{}, err
	}
	next, err := balance.CheckedAdd(delta)
	if err != nil {
		return core.Money{}, fmt.Errorf("adjust balance of %s by %d: %w", accountID, delta, err)
	}
	if _, err := tx.tx.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = ? WHERE id = ?`,
		next.Cents, accountID); err != nil {
		return core.Money{}, fmt.Errorf("write balance: %w", err)
	}
	return next, nil
}

// SoftDeleteAccount marks an account deleted. Invoked by account
// management; once set, balance reads and delta applications against the
// account fail with ErrNotFound.
func (r *Repository) SoftDeleteAccount(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET deleted_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("soft delete account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete account rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// RecomputeBalance derives an account's balance from scratch as the sum
// of signed effects of every non-deleted transaction touching it. The
// audit worker compares this against the cached column.
func (r *Repository) RecomputeBalance(ctx context.Context, accountID string) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE
			WHEN kind = 'income'   AND account_id = ?1              THEN amount_cents
			WHEN kind = 'expense'  AND account_id = ?1              THEN -amount_cents
			WHEN kind = 'transfer' AND account_id = ?1              THEN -amount_cents
			WHEN kind = 'transfer' AND counterparty_account_id = ?1 THEN amount_cents
			ELSE 0 END), 0)
		FROM transactions
		WHERE deleted_at IS NULL AND (account_id = ?1 OR counterparty_account_id = ?1)`,
		accountID).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("recompute balance of %s: %w", accountID, err)
	}
	return core.Money{Cents: cents}, nil
}

// ActiveAccountIDs lists ids of accounts that are not soft-deleted, for
// the audit sweep.
func (r *Repository) ActiveAccountIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM accounts WHERE deleted_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list active accounts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanAccount(row *sql.Row) (core.Account, error) {
	var (
		a         core.Account
		goalID    sql.NullString
		createdAt sql.NullTime
		deletedAt sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Name, &goalID, &a.Balance.Cents, &a.Opening.Cents, &createdAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	a.GoalID = goalID.String
	a.CreatedAt = createdAt.Time
	if deletedAt.Valid {
		t := deletedAt.Time
		a.DeletedAt = &t
	}
	return a, nil
}
