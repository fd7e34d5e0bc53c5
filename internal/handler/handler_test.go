package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/junii03/banking-ledger/internal/config"
	"github.com/junii03/banking-ledger/internal/logging"
	"github.com/junii03/banking-ledger/internal/models"
	"github.com/junii03/banking-ledger/internal/repository"
	"github.com/junii03/banking-ledger/internal/service"
	"github.com/junii03/banking-ledger/internal/statement"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.LedgerConfig{
		CountryCode:              "PK",
		BankCode:                 "HBBL",
		Currency:                 "PKR",
		MaxAccountNumberAttempts: 20,
		LockTimeout:              time.Second,
		ConflictRetries:          3,
		Timezone:                 "UTC",
		RecordFailedTransfers:    true,
		Products:                 config.DefaultProducts(),
	}
	logger := logging.Discard()
	store := repository.NewMemoryStore().Store()
	locker := service.NewAccountLocker()
	publisher := service.NewAsyncPublisher(nil, time.Second, logger)

	registry, err := service.NewAccountRegistry(store, locker, publisher, cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	limits := service.NewLimitEvaluator(store.Accounts, store.Transactions, time.UTC)
	engine := service.NewTransferEngine(store, limits, locker, publisher, cfg, logger)

	router := mux.NewRouter()
	NewAccountHandler(registry, engine, statement.NewBuilder(registry, engine), time.UTC, logger).RegisterRoutes(router)
	NewTransactionHandler(engine, logger).RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			payload.WriteString(s)
		} else if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &payload)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp
}

func openAccount(t *testing.T, base string) models.Account {
	t.Helper()
	var account models.Account
	resp := do(t, http.MethodPost, base+"/accounts", map[string]string{
		"owner_id": "owner-1", "account_type": "current", "title": "Test",
	}, &account)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create account status=%d", resp.StatusCode)
	}
	return account
}

func TestTransferFlow(t *testing.T) {
	srv := newTestServer(t)
	a := openAccount(t, srv.URL)
	b := openAccount(t, srv.URL)

	if resp := do(t, http.MethodPost, srv.URL+"/deposits", map[string]any{
		"account_id": a.ID, "amount": "100000", "channel": "branch",
	}, nil); resp.StatusCode != http.StatusCreated {
		t.Fatalf("deposit status=%d", resp.StatusCode)
	}

	var txn models.Transaction
	resp := do(t, http.MethodPost, srv.URL+"/transactions", map[string]any{
		"from_account_id": a.ID, "to_account_id": b.ID, "amount": "50000", "description": "rent",
	}, &txn)
	if resp.StatusCode != http.StatusCreated || txn.Status != models.TransactionStatusCompleted {
		t.Fatalf("transfer status=%d txn=%+v", resp.StatusCode, txn)
	}

	var got models.Account
	do(t, http.MethodGet, srv.URL+"/accounts/"+b.ID, nil, &got)
	if !got.Balance.Equal(decimal.NewFromInt(50_000)) {
		t.Fatalf("B balance=%s", got.Balance)
	}

	var history models.HistoryResponse
	do(t, http.MethodGet, srv.URL+"/accounts/"+a.ID+"/transactions?limit=10", nil, &history)
	if len(history.Transactions) != 2 || history.Limit != 10 {
		t.Fatalf("history=%+v", history)
	}

	var reversal models.Transaction
	if resp := do(t, http.MethodPost, srv.URL+"/transactions/"+txn.TransactionID+"/reverse", `{"reason":"duplicate"}`, &reversal); resp.StatusCode != http.StatusCreated {
		t.Fatalf("reverse status=%d", resp.StatusCode)
	}
	if resp := do(t, http.MethodPost, srv.URL+"/transactions/"+txn.ID+"/reverse", nil, nil); resp.StatusCode != http.StatusConflict {
		t.Fatalf("second reverse status=%d want 409", resp.StatusCode)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	a := openAccount(t, srv.URL)
	b := openAccount(t, srv.URL)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"malformed json", http.MethodPost, "/transactions", `{"amount":`, http.StatusBadRequest},
		{"negative amount", http.MethodPost, "/transactions", map[string]any{"from_account_id": a.ID, "to_account_id": b.ID, "amount": "-5"}, http.StatusBadRequest},
		{"same account", http.MethodPost, "/transactions", map[string]any{"from_account_id": a.ID, "to_account_id": a.ID, "amount": "5"}, http.StatusBadRequest},
		{"insufficient funds", http.MethodPost, "/transactions", map[string]any{"from_account_id": a.ID, "to_account_id": b.ID, "amount": "5"}, http.StatusUnprocessableEntity},
		{"unknown account", http.MethodGet, "/accounts/does-not-exist", nil, http.StatusNotFound},
		{"unknown transaction", http.MethodGet, "/transactions/TXN0", nil, http.StatusNotFound},
		{"bad status", http.MethodPatch, "/accounts/" + a.ID + "/status", map[string]string{"status": "suspended"}, http.StatusBadRequest},
		{"bad month", http.MethodGet, "/accounts/" + a.ID + "/summary?year=2024&month=13", nil, http.StatusBadRequest},
		{"bad statement format", http.MethodGet, "/accounts/" + a.ID + "/statement?format=doc", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			resp := do(t, tt.method, srv.URL+tt.path, tt.body, &body)
			if resp.StatusCode != tt.want {
				t.Fatalf("status=%d want %d body=%v", resp.StatusCode, tt.want, body)
			}
			if msg, ok := body["error"].(string); !ok || msg == "" {
				t.Fatal("error response without an error field")
			}
		})
	}
}

func TestLimitExceededDetails(t *testing.T) {
	srv := newTestServer(t)
	a := openAccount(t, srv.URL)
	b := openAccount(t, srv.URL)

	do(t, http.MethodPost, srv.URL+"/deposits", map[string]any{"account_id": a.ID, "amount": "900000"}, nil)

	var body struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	resp := do(t, http.MethodPost, srv.URL+"/transactions", map[string]any{
		"from_account_id": a.ID, "to_account_id": b.ID, "amount": "200000",
	}, &body)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	// Current accounts allow 1,000,000 a day and the deposit already counts.
	if body.Details["exceeds_by"] != "100000.00" || body.Details["period"] != "daily" {
		t.Fatalf("details=%v", body.Details)
	}
}

func TestStatementAndHolds(t *testing.T) {
	srv := newTestServer(t)
	a := openAccount(t, srv.URL)
	do(t, http.MethodPost, srv.URL+"/deposits", map[string]any{"account_id": a.ID, "amount": "1000"}, nil)

	var held models.Account
	if resp := do(t, http.MethodPost, srv.URL+"/accounts/"+a.ID+"/holds", map[string]string{"amount": "400"}, &held); resp.StatusCode != http.StatusOK {
		t.Fatalf("hold status=%d", resp.StatusCode)
	}
	if !held.AvailableBalance.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("available=%s", held.AvailableBalance)
	}
	var released models.Account
	do(t, http.MethodDelete, srv.URL+"/accounts/"+a.ID+"/holds", map[string]string{"amount": "400"}, &released)
	if !released.HeldAmount.IsZero() {
		t.Fatalf("held=%s", released.HeldAmount)
	}

	resp := do(t, http.MethodGet, srv.URL+"/accounts/"+a.ID+"/statement", nil, nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/pdf" {
		t.Fatalf("statement status=%d type=%q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), a.AccountNumber) {
		t.Fatalf("disposition=%q", resp.Header.Get("Content-Disposition"))
	}
}
