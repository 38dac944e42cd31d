package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"saldo/internal/services"
	"saldo/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo, err := storage.Open(filepath.Join(t.TempDir(), "saldo.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	srv := NewServer(":0", services.NewLedgerService(repo, nil))
	t.Cleanup(func() { srv.rateLimiter.stop() })

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp, decoded
}

func createAccount(t *testing.T, ts *httptest.Server, name, opening string) string {
	t.Helper()
	resp, body := doJSON(t, ts, http.MethodPost, "/accounts", map[string]any{
		"name":            name,
		"opening_balance": opening,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create account status = %d, body %v", resp.StatusCode, body)
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatalf("create account returned no id: %v", body)
	}
	return id
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := ts.Client().Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestCreateTransactionAdjustsBalance(t *testing.T) {
	ts := newTestServer(t)
	accountID := createAccount(t, ts, "checking", "1000.00")

	resp, body := doJSON(t, ts, http.MethodPost, "/transactions", map[string]any{
		"account_id":  accountID,
		"kind":        "expense",
		"amount":      "300.00",
		"description": "rent",
		"splits": []map[string]any{
			{"category_id": "housing", "amount": "250.00"},
			{"category_id": "utilities", "amount": "50.00"},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create transaction status = %d, body %v", resp.StatusCode, body)
	}
	if body["amount"] != "300.00" {
		t.Errorf("amount = %v, want 300.00", body["amount"])
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/accounts/"+accountID+"/balance", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("balance status = %d", resp.StatusCode)
	}
	if body["balance"] != "700.00" {
		t.Errorf("balance = %v, want 700.00", body["balance"])
	}
}

func TestDeleteTransactionRestoresBalanceAndIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	accountID := createAccount(t, ts, "checking", "1000.00")

	_, created := doJSON(t, ts, http.MethodPost, "/transactions", map[string]any{
		"account_id": accountID,
		"kind":       "expense",
		"amount":     "300.00",
	})
	txnID, _ := created["id"].(string)

	for i := 0; i < 2; i++ {
		resp, _ := doJSON(t, ts, http.MethodDelete, "/transactions/"+txnID, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("delete #%d status = %d, want 204", i+1, resp.StatusCode)
		}
	}
	// Deleting a transaction that never existed is still a 204.
	resp, _ := doJSON(t, ts, http.MethodDelete, "/transactions/never-existed", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete missing status = %d, want 204", resp.StatusCode)
	}

	_, body := doJSON(t, ts, http.MethodGet, "/accounts/"+accountID+"/balance", nil)
	if body["balance"] != "1000.00" {
		t.Errorf("balance after delete = %v, want 1000.00", body["balance"])
	}
}

func TestUpdateTransaction(t *testing.T) {
	ts := newTestServer(t)
	accountID := createAccount(t, ts, "checking", "1000.00")

	_, created := doJSON(t, ts, http.MethodPost, "/transactions", map[string]any{
		"account_id": accountID,
		"kind":       "expense",
		"amount":     "300.00",
	})
	txnID, _ := created["id"].(string)

	resp, body := doJSON(t, ts, http.MethodPatch, "/transactions/"+txnID, map[string]any{
		"amount": "100.00",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d, body %v", resp.StatusCode, body)
	}
	if body["amount"] != "100.00" {
		t.Errorf("patched amount = %v, want 100.00", body["amount"])
	}

	_, balance := doJSON(t, ts, http.MethodGet, "/accounts/"+accountID+"/balance", nil)
	if balance["balance"] != "900.00" {
		t.Errorf("balance after patch = %v, want 900.00", balance["balance"])
	}

	resp, _ = doJSON(t, ts, http.MethodPatch, "/transactions/missing", map[string]any{
		"amount": "1.00",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("patch missing status = %d, want 404", resp.StatusCode)
	}
}

func TestTransferBetweenAccounts(t *testing.T) {
	ts := newTestServer(t)
	src := createAccount(t, ts, "checking", "100.00")
	dst := createAccount(t, ts, "savings", "20.00")

	resp, body := doJSON(t, ts, http.MethodPost, "/transactions", map[string]any{
		"account_id":              src,
		"counterparty_account_id": dst,
		"kind":                    "transfer",
		"amount":                  "50.00",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("transfer status = %d, body %v", resp.StatusCode, body)
	}

	_, srcBalance := doJSON(t, ts, http.MethodGet, "/accounts/"+src+"/balance", nil)
	_, dstBalance := doJSON(t, ts, http.MethodGet, "/accounts/"+dst+"/balance", nil)
	if srcBalance["balance"] != "50.00" {
		t.Errorf("source balance = %v, want 50.00", srcBalance["balance"])
	}
	if dstBalance["balance"] != "70.00" {
		t.Errorf("destination balance = %v, want 70.00", dstBalance["balance"])
	}
}

func TestCreateTransactionRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)
	accountID := createAccount(t, ts, "checking", "100.00")

	cases := []struct {
		name string
		req  map[string]any
		want int
	}{
		{
			name: "unknown account",
			req:  map[string]any{"account_id": "missing", "kind": "expense", "amount": "1.00"},
			want: http.StatusNotFound,
		},
		{
			name: "bad kind",
			req:  map[string]any{"account_id": accountID, "kind": "loan", "amount": "1.00"},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "zero amount",
			req:  map[string]any{"account_id": accountID, "kind": "expense", "amount": "0"},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "sub-cent amount",
			req:  map[string]any{"account_id": accountID, "kind": "expense", "amount": "1.999"},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "transfer to self",
			req: map[string]any{
				"account_id": accountID, "counterparty_account_id": accountID,
				"kind": "transfer", "amount": "1.00",
			},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "splits do not sum",
			req: map[string]any{
				"account_id": accountID, "kind": "expense", "amount": "10.00",
				"splits": []map[string]any{{"category_id": "food", "amount": "3.00"}},
			},
			want: http.StatusUnprocessableEntity,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doJSON(t, ts, http.MethodPost, "/transactions", tc.req)
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d (body %v)", resp.StatusCode, tc.want, body)
			}
		})
	}

	// Rejected requests must not move the balance.
	_, balance := doJSON(t, ts, http.MethodGet, "/accounts/"+accountID+"/balance", nil)
	if balance["balance"] != "100.00" {
		t.Errorf("balance after rejected requests = %v, want 100.00", balance["balance"])
	}
}

func TestMalformedJSONIsBadRequest(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.Client().Post(ts.URL+"/transactions", "application/json",
		bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGoalProgressEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, goal := doJSON(t, ts, http.MethodPost, "/goals", map[string]any{
		"name":   "house deposit",
		"target": "10000.00",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create goal status = %d, body %v", resp.StatusCode, goal)
	}
	goalID, _ := goal["id"].(string)

	_, body := doJSON(t, ts, http.MethodPost, "/accounts", map[string]any{
		"name":            "savings",
		"goal_id":         goalID,
		"opening_balance": "2000.00",
	})
	accountID, _ := body["id"].(string)

	if _, b := doJSON(t, ts, http.MethodPost, "/transactions", map[string]any{
		"account_id": accountID,
		"kind":       "income",
		"amount":     "500.00",
	}); b["id"] == nil {
		t.Fatalf("create income failed: %v", b)
	}

	resp, progress := doJSON(t, ts, http.MethodGet, fmt.Sprintf("/goals/%s/progress", goalID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("progress status = %d", resp.StatusCode)
	}
	if progress["saved"] != "2500.00" {
		t.Errorf("saved = %v, want 2500.00", progress["saved"])
	}
	if progress["percent"] != 25.0 {
		t.Errorf("percent = %v, want 25", progress["percent"])
	}

	resp, _ = doJSON(t, ts, http.MethodGet, "/goals/missing/progress", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing goal status = %d, want 404", resp.StatusCode)
	}
}
