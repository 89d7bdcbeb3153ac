package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"finay/internal/services"
	"finay/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	srv := NewServer(":0", services.NewLedgerService(repo, nil), services.NewSummaryService(repo), 1000, time.Minute)
	t.Cleanup(func() {
		srv.rateLimiter.stop()
		srv.cacheManager.Stop()
	})
	return srv
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, srv *Server, method, path, owner string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if owner != "" {
		req.Header.Set(ownerHeader, owner)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope from %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func openAccount(t *testing.T, srv *Server) string {
	t.Helper()
	rec, env := doJSON(t, srv, http.MethodPost, "/accounts", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("open account: status %d body %s", rec.Code, rec.Body.String())
	}
	var acct accountDTO
	if err := json.Unmarshal(env.Data, &acct); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	return acct.ID
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
	}
}

func TestOpenAccountAndBalance(t *testing.T) {
	srv := newTestServer(t)
	owner := openAccount(t, srv)

	rec, env := doJSON(t, srv, http.MethodGet, "/accounts/balance", owner, nil)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("balance: status %d body %s", rec.Code, rec.Body.String())
	}
	var acct accountDTO
	if err := json.Unmarshal(env.Data, &acct); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if acct.BalanceCents != 0 {
		t.Fatalf("new account balance expected 0, got %d", acct.BalanceCents)
	}

	rec, _ = doJSON(t, srv, http.MethodGet, "/accounts/balance", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing identity expected 401, got %d", rec.Code)
	}

	rec, _ = doJSON(t, srv, http.MethodGet, "/accounts/balance", "ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown account expected 404, got %d", rec.Code)
	}

	rec, _ = doJSON(t, srv, http.MethodPost, "/transactions", "ghost", map[string]any{
		"type":     "expense",
		"amount":   "10.00",
		"category": "Food",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("create for unknown account expected 404, got %d", rec.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	owner := openAccount(t, srv)

	rec, env := doJSON(t, srv, http.MethodPost, "/transactions", owner, map[string]any{
		"type":     "expense",
		"amount":   40.5,
		"category": "Food",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}
	var created transactionDTO
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode transaction: %v", err)
	}
	if created.AmountCents != 4050 || created.PaymentMethod != "Other" || created.Status != "Completed" {
		t.Fatalf("unexpected create result: %+v", created)
	}
	if created.Color == "" {
		t.Fatalf("expected category color")
	}

	rec, env = doJSON(t, srv, http.MethodGet, "/accounts/balance", owner, nil)
	var acct accountDTO
	if err := json.Unmarshal(env.Data, &acct); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if acct.BalanceCents != -4050 {
		t.Fatalf("balance expected -4050, got %d", acct.BalanceCents)
	}

	rec, env = doJSON(t, srv, http.MethodGet, "/transactions/"+created.ID, owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}

	rec, env = doJSON(t, srv, http.MethodPut, "/transactions/"+created.ID, owner, map[string]any{
		"amount": "0.40",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d body %s", rec.Code, rec.Body.String())
	}
	var updated transactionDTO
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode updated: %v", err)
	}
	if updated.AmountCents != 40 {
		t.Fatalf("expected 40 cents, got %d", updated.AmountCents)
	}

	_, env = doJSON(t, srv, http.MethodGet, "/accounts/balance", owner, nil)
	if err := json.Unmarshal(env.Data, &acct); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if acct.BalanceCents != -40 {
		t.Fatalf("balance after update expected -40, got %d", acct.BalanceCents)
	}

	rec, _ = doJSON(t, srv, http.MethodDelete, "/transactions/"+created.ID, owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec, _ = doJSON(t, srv, http.MethodGet, "/transactions/"+created.ID, owner, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete expected 404, got %d", rec.Code)
	}
	_, env = doJSON(t, srv, http.MethodGet, "/accounts/balance", owner, nil)
	if err := json.Unmarshal(env.Data, &acct); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if acct.BalanceCents != 0 {
		t.Fatalf("balance after delete expected 0, got %d", acct.BalanceCents)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv := newTestServer(t)
	owner := openAccount(t, srv)

	cases := []struct {
		name string
		body map[string]any
		code int
	}{
		{"bad kind", map[string]any{"type": "loan", "amount": 1, "category": "Food"}, http.StatusUnprocessableEntity},
		{"bad category", map[string]any{"type": "expense", "amount": 1, "category": "Groceries"}, http.StatusUnprocessableEntity},
		{"zero amount", map[string]any{"type": "expense", "amount": 0, "category": "Food"}, http.StatusUnprocessableEntity},
		{"negative amount", map[string]any{"type": "expense", "amount": -5, "category": "Food"}, http.StatusUnprocessableEntity},
		{"bad timestamp", map[string]any{"type": "expense", "amount": 1, "category": "Food", "occurredAt": "yesterday"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := doJSON(t, srv, http.MethodPost, "/transactions", owner, tc.body)
			if rec.Code != tc.code {
				t.Fatalf("status %d, want %d (body %s)", rec.Code, tc.code, rec.Body.String())
			}
			if env.Success {
				t.Fatalf("expected success=false")
			}
		})
	}

	// Malformed JSON body.
	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewBufferString("{"))
	req.Header.Set(ownerHeader, owner)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed JSON expected 400, got %d", rec.Code)
	}
}

func TestOwnershipOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	alice := openAccount(t, srv)
	mallory := openAccount(t, srv)

	_, env := doJSON(t, srv, http.MethodPost, "/transactions", alice, map[string]any{
		"type": "expense", "amount": 1, "category": "Food",
	})
	var created transactionDTO
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec, _ := doJSON(t, srv, http.MethodGet, "/transactions/"+created.ID, mallory, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign get expected 403, got %d", rec.Code)
	}
	rec, _ = doJSON(t, srv, http.MethodDelete, "/transactions/"+created.ID, mallory, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign delete expected 403, got %d", rec.Code)
	}
}

func TestListTransactionsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	owner := openAccount(t, srv)

	seed := []map[string]any{
		{"type": "income", "amount": 100, "category": "Salary"},
		{"type": "expense", "amount": 4, "category": "Food"},
		{"type": "expense", "amount": 9, "category": "Bills"},
	}
	for _, body := range seed {
		if rec, _ := doJSON(t, srv, http.MethodPost, "/transactions", owner, body); rec.Code != http.StatusCreated {
			t.Fatalf("seed failed: %d", rec.Code)
		}
	}

	rec, env := doJSON(t, srv, http.MethodGet, "/transactions?type=expense&sort=amount&dir=asc", owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d body %s", rec.Code, rec.Body.String())
	}
	var list listResponse
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.TotalCount != 2 || len(list.Items) != 2 {
		t.Fatalf("expected 2 expenses, got %+v", list)
	}
	if list.Items[0].AmountCents != 400 || list.Items[1].AmountCents != 900 {
		t.Fatalf("bad sort order: %+v", list.Items)
	}

	rec, _ = doJSON(t, srv, http.MethodGet, "/transactions?sort=balance", owner, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad sort expected 422, got %d", rec.Code)
	}
}

func TestSummaryEndpointCachesAndInvalidates(t *testing.T) {
	srv := newTestServer(t)
	owner := openAccount(t, srv)

	if rec, _ := doJSON(t, srv, http.MethodPost, "/transactions", owner, map[string]any{
		"type": "income", "amount": 500, "category": "Salary",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("seed failed: %d", rec.Code)
	}

	fetch := func() summaryDTO {
		t.Helper()
		rec, env := doJSON(t, srv, http.MethodGet, "/transactions/stats/summary?period=week", owner, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("summary: status %d body %s", rec.Code, rec.Body.String())
		}
		var s summaryDTO
		if err := json.Unmarshal(env.Data, &s); err != nil {
			t.Fatalf("decode summary: %v", err)
		}
		return s
	}

	first := fetch()
	if first.IncomeCents != 50000 {
		t.Fatalf("income expected 50000, got %d", first.IncomeCents)
	}
	if srv.summaryCache.Size() != 1 {
		t.Fatalf("expected cached summary, size=%d", srv.summaryCache.Size())
	}

	// Second read is served from cache.
	if second := fetch(); second.IncomeCents != first.IncomeCents {
		t.Fatalf("cached read differs")
	}

	// A mutation drops the cache and the next read sees the new entry.
	if rec, _ := doJSON(t, srv, http.MethodPost, "/transactions", owner, map[string]any{
		"type": "expense", "amount": 100, "category": "Food",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("mutation failed: %d", rec.Code)
	}
	if srv.summaryCache.Size() != 0 {
		t.Fatalf("cache not invalidated, size=%d", srv.summaryCache.Size())
	}

	third := fetch()
	if third.ExpenseCents != 10000 || third.SavingsCents != 40000 {
		t.Fatalf("stale summary after mutation: %+v", third)
	}
}

func TestSummaryRejectsBadPeriod(t *testing.T) {
	srv := newTestServer(t)
	owner := openAccount(t, srv)

	rec, _ := doJSON(t, srv, http.MethodGet, "/transactions/stats/summary?period=quarter", owner, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad period expected 422, got %d", rec.Code)
	}

	rec, _ = doJSON(t, srv, http.MethodGet, "/transactions/stats/summary?startDate=2025-01-01", owner, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("half range expected 400, got %d", rec.Code)
	}
}
