package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trustfund-platform/trustfund/pkg/client"
)

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			if r.Method != http.MethodPost {
				t.Errorf("login method = %s, want POST", r.Method)
			}
			var creds map[string]string
			if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
				t.Fatalf("decode credentials: %v", err)
			}
			if creds["email"] != "alice@example.com" {
				t.Errorf("email = %q", creds["email"])
			}
			json.NewEncoder(w).Encode(map[string]any{
				"user":  map[string]any{"id": "u1", "email": "alice@example.com", "trust_score": 50},
				"token": "session-token",
			})
		case "/api/v1/users/me":
			if got := r.Header.Get("Authorization"); got != "Bearer session-token" {
				t.Errorf("Authorization = %q, want Bearer session-token", got)
			}
			json.NewEncoder(w).Encode(map[string]any{"id": "u1", "email": "alice@example.com"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := client.MustNew(srv.URL)
	u, err := c.Login(context.Background(), "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if u.TrustScore != 50 {
		t.Errorf("TrustScore = %d, want 50", u.TrustScore)
	}
	if c.Token() != "session-token" {
		t.Errorf("Token = %q, want session-token", c.Token())
	}

	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("Me: %v", err)
	}
}

func TestLedgerOverview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/ledger" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"transactions": 42,
			"tip":          strings.Repeat("ab", 32),
		})
	}))
	defer srv.Close()

	ov, err := client.MustNew(srv.URL).LedgerOverview(context.Background())
	if err != nil {
		t.Fatalf("LedgerOverview: %v", err)
	}
	if ov.Transactions != 42 {
		t.Errorf("Transactions = %d, want 42", ov.Transactions)
	}
	if len(ov.Tip) != 64 {
		t.Errorf("Tip length = %d, want 64", len(ov.Tip))
	}
}

func TestVerifyLedger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"valid":       false,
			"invalid_ids": []string{"3f0cbd1e-0000-0000-0000-000000000001"},
		})
	}))
	defer srv.Close()

	res, err := client.MustNew(srv.URL).VerifyLedger(context.Background())
	if err != nil {
		t.Fatalf("VerifyLedger: %v", err)
	}
	if res.Valid {
		t.Error("Valid = true, want false")
	}
	if len(res.InvalidIDs) != 1 {
		t.Fatalf("InvalidIDs = %v, want one entry", res.InvalidIDs)
	}
}

func TestTransactionsFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("loan_id"); got != "loan-1" {
			t.Errorf("loan_id = %q, want loan-1", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"transactions": []map[string]any{
				{"id": "t1", "loan_id": "loan-1", "transaction_type": "request", "amount": "100.00"},
			},
		})
	}))
	defer srv.Close()

	txs, err := client.MustNew(srv.URL).Transactions(context.Background(), client.TransactionFilter{LoanID: "loan-1"})
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].Type != "request" {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
}

func TestTransactionCache(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"id": "t1", "amount": "50.00"})
	}))
	defer srv.Close()

	c := client.MustNew(srv.URL, client.WithCacheTTL(time.Minute))
	for i := 0; i < 3; i++ {
		if _, err := c.Transaction(context.Background(), "t1"); err != nil {
			t.Fatalf("Transaction: %v", err)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1 (cached)", n)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/ledger/transactions/missing":
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "transaction not found"})
		case "/api/v1/users/me":
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "session required"})
		}
	}))
	defer srv.Close()

	c := client.MustNew(srv.URL)

	_, err := c.Transaction(context.Background(), "missing")
	if !errors.Is(err, client.ErrNotFound) {
		t.Errorf("Transaction error = %v, want ErrNotFound", err)
	}

	_, err = c.Me(context.Background())
	if !errors.Is(err, client.ErrUnauthorized) {
		t.Errorf("Me error = %v, want ErrUnauthorized", err)
	}
	if err == nil || !strings.Contains(err.Error(), "session required") {
		t.Errorf("error %v should carry the API message", err)
	}
}
