package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"saldo/internal/core"
	"saldo/internal/services"
)

type splitPayload struct {
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
}

type transactionResponse struct {
	ID             string         `json:"id"`
	AccountID      string         `json:"account_id"`
	CounterpartyID string         `json:"counterparty_account_id,omitempty"`
	Kind           string         `json:"kind"`
	Amount         string         `json:"amount"`
	Description    string         `json:"description,omitempty"`
	Splits         []splitPayload `json:"splits,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      *time.Time     `json:"deleted_at,omitempty"`
}

func toTransactionResponse(t core.Transaction, splits []core.Split) transactionResponse {
	resp := transactionResponse{
		ID:             t.ID,
		AccountID:      t.AccountID,
		CounterpartyID: t.CounterpartyID,
		Kind:           string(t.Kind),
		Amount:         formatAmount(t.Amount),
		Description:    t.Description,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		DeletedAt:      t.DeletedAt,
	}
	for _, s := range splits {
		resp.Splits = append(resp.Splits, splitPayload{
			CategoryID: s.CategoryID,
			Amount:     formatAmount(s.Amount),
		})
	}
	return resp
}

func parseSplits(payloads []splitPayload) ([]core.Split, error) {
	if payloads == nil {
		return nil, nil
	}
	splits := make([]core.Split, 0, len(payloads))
	for _, p := range payloads {
		amount, err := parseAmount(p.Amount)
		if err != nil {
			return nil, err
		}
		splits = append(splits, core.Split{CategoryID: p.CategoryID, Amount: amount})
	}
	return splits, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID      string         `json:"account_id"`
		CounterpartyID string         `json:"counterparty_account_id"`
		Kind           string         `json:"kind"`
		Amount         string         `json:"amount"`
		Description    string         `json:"description"`
		Splits         []splitPayload `json:"splits"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	splits, err := parseSplits(req.Splits)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	txn, err := s.ledger.CreateTransaction(r.Context(), services.NewTransaction{
		AccountID:      req.AccountID,
		CounterpartyID: req.CounterpartyID,
		Kind:           core.Kind(req.Kind),
		Amount:         amount,
		Description:    req.Description,
		Splits:         splits,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(txn, splits))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	txn, splits, err := s.ledger.Transaction(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(txn, splits))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind           *string        `json:"kind"`
		Amount         *string        `json:"amount"`
		CounterpartyID *string        `json:"counterparty_account_id"`
		Description    *string        `json:"description"`
		Splits         []splitPayload `json:"splits"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	patch := services.TransactionPatch{
		CounterpartyID: req.CounterpartyID,
		Description:    req.Description,
	}
	if req.Kind != nil {
		kind := core.Kind(*req.Kind)
		patch.Kind = &kind
	}
	if req.Amount != nil {
		amount, err := parseAmount(*req.Amount)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		patch.Amount = &amount
	}
	if req.Splits != nil {
		splits, err := parseSplits(req.Splits)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if splits == nil {
			splits = []core.Split{}
		}
		patch.Splits = splits
	}

	txn, err := s.ledger.UpdateTransaction(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_, splits, err := s.ledger.Transaction(r.Context(), txn.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(txn, splits))
}

// handleDeleteTransaction always answers 204: deleting a missing or
// already-deleted transaction is indistinguishable from a successful
// delete.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string `json:"name"`
		GoalID         string `json:"goal_id"`
		OpeningBalance string `json:"opening_balance"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "account name is required")
		return
	}

	opening := core.Money{}
	if req.OpeningBalance != "" {
		var err error
		opening, err = parseAmount(req.OpeningBalance)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	account, err := s.ledger.CreateAccount(r.Context(), req.Name, req.GoalID, opening)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         account.ID,
		"name":       account.Name,
		"goal_id":    account.GoalID,
		"balance":    formatAmount(account.Balance),
		"created_at": account.CreatedAt,
	})
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	balance, err := s.ledger.AccountBalance(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account_id":    id,
		"balance":       formatAmount(balance),
		"balance_cents": balance.Cents,
	})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string `json:"name"`
		Target string `json:"target"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	target, err := parseAmount(req.Target)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	goal, err := s.ledger.CreateGoal(r.Context(), req.Name, target)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         goal.ID,
		"name":       goal.Name,
		"target":     formatAmount(goal.Target),
		"created_at": goal.CreatedAt,
	})
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.ledger.GoalProgress(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"goal_id": progress.GoalID,
		"name":    progress.Name,
		"target":  formatAmount(progress.Target),
		"saved":   formatAmount(progress.Saved),
		"percent": progress.Percent,
	})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps ledger errors onto HTTP statuses. Validation
// failures answer 422 so clients can distinguish them from malformed
// JSON.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrOverflow),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrEmptyAccount),
		errors.Is(err, core.ErrSameAccount),
		errors.Is(err, core.ErrSplitMismatch),
		errors.Is(err, core.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
