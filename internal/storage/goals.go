package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"saldo/internal/core"
)

func (r *Repository) CreateGoal(ctx context.Context, g core.Goal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO savings_goals (id, name, target_cents, created_at) VALUES (?, ?, ?, ?)`,
		g.ID, g.Name, g.Target.Cents, g.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

// GoalProgress aggregates the current balances of every active account
// assigned to the goal. Derived on every call from committed ledger
// state; never cached.
func (r *Repository) GoalProgress(ctx context.Context, goalID string) (core.GoalProgress, error) {
	p := core.GoalProgress{GoalID: goalID}
	err := r.db.QueryRowContext(ctx,
		`SELECT name, target_cents FROM savings_goals WHERE id = ?`, goalID).
		Scan(&p.Name, &p.Target.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.GoalProgress{}, fmt.Errorf("goal %s: %w", goalID, core.ErrNotFound)
	}
	if err != nil {
		return core.GoalProgress{}, fmt.Errorf("read goal: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(balance_cents), 0) FROM accounts
		 WHERE goal_id = ? AND deleted_at IS NULL`, goalID).
		Scan(&p.Saved.Cents)
	if err != nil {
		return core.GoalProgress{}, fmt.Errorf("sum goal balances: %w", err)
	}

	if p.Target.Cents > 0 {
		p.Percent = float64(p.Saved.Cents) / float64(p.Target.Cents) * 100
	}
	return p, nil
}
