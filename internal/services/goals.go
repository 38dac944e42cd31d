package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"saldo/internal/core"
)

// Account and goal management is a thin collaborator of the engine: it
// never touches balances outside a unit of work, it only anchors them.

func (s *LedgerService) CreateAccount(ctx context.Context, name, goalID string, opening core.Money) (core.Account, error) {
	if opening.Cents < 0 {
		return core.Account{}, core.ErrInvalidAmount
	}
	account := core.Account{
		ID:        uuid.NewString(),
		Name:      name,
		GoalID:    goalID,
		Balance:   opening,
		Opening:   opening,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.storage.CreateAccount(ctx, account); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	slog.InfoContext(ctx, "Account created",
		"account_id", account.ID, "goal_id", goalID, "opening_cents", opening.Cents)
	return account, nil
}

func (s *LedgerService) CreateGoal(ctx context.Context, name string, target core.Money) (core.Goal, error) {
	goal := core.Goal{
		ID:        uuid.NewString(),
		Name:      name,
		Target:    target,
		CreatedAt: time.Now().UTC(),
	}
	if err := goal.Validate(); err != nil {
		return core.Goal{}, err
	}
	if err := s.storage.CreateGoal(ctx, goal); err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	slog.InfoContext(ctx, "Goal created", "goal_id", goal.ID, "target_cents", target.Cents)
	return goal, nil
}

// GoalProgress recomputes progress from current account balances on
// every call.
func (s *LedgerService) GoalProgress(ctx context.Context, goalID string) (core.GoalProgress, error) {
	return s.storage.GoalProgress(ctx, goalID)
}
