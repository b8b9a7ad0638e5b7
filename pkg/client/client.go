// Package client provides the TrustFund Go SDK for talking to the platform
// API: authentication, loans, and the hash-chained transaction ledger.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// ErrUnauthorized is returned when the API rejects the client's credentials
// or bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotFound is returned when the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// User is the account record returned by the API.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	TrustScore    int       `json:"trust_score"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// Loan is a lending record returned by the API.
type Loan struct {
	ID         string     `json:"id"`
	BorrowerID string     `json:"borrower_id"`
	LenderID   string     `json:"lender_id,omitempty"`
	Amount     string     `json:"amount"`
	Purpose    string     `json:"purpose"`
	Status     string     `json:"status"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	RepaidAt   *time.Time `json:"repaid_at,omitempty"`
}

// Transaction is a single ledger entry. Entries are immutable once written.
type Transaction struct {
	ID        string    `json:"id"`
	LoanID    string    `json:"loan_id"`
	UserID    string    `json:"user_id"`
	Amount    string    `json:"amount"`
	Type      string    `json:"transaction_type"`
	PrevHash  string    `json:"prev_hash"`
	CurrHash  string    `json:"curr_hash"`
	CreatedAt time.Time `json:"created_at"`
}

// LedgerOverview holds the chain length and tip hash from GET /api/v1/ledger.
type LedgerOverview struct {
	Transactions int64  `json:"transactions"`
	Tip          string `json:"tip"`
}

// VerifyResult is the outcome of a full-chain integrity check.
type VerifyResult struct {
	Valid      bool     `json:"valid"`
	InvalidIDs []string `json:"invalid_ids"`
}

// TransactionFilter narrows a transaction listing. Empty fields match everything.
type TransactionFilter struct {
	LoanID string
	UserID string
}

// Client is the TrustFund SDK entry point.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *txCache

	// token state — guarded by mu
	mu          sync.Mutex
	bearerToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client, overriding any TLS options.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithCacheTTL enables in-memory caching of fetched ledger transactions with
// the given TTL. Ledger entries never change after being written, so the TTL
// only bounds memory, not staleness.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) error {
		c.cache = newTxCache(ttl)
		return nil
	}
}

// WithBearerToken attaches a pre-obtained session token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		return nil
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
// Only use this in development against a locally-generated certificate.
func WithInsecureSkipVerify() Option {
	return func(c *Client) error {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
			Timeout: 10 * time.Second,
		}
		return nil
	}
}

// New creates a new TrustFund SDK Client connected to baseURL.
//
//	c, err := client.New("https://api.trustfund.example",
//	    client.WithBearerToken(token),
//	    client.WithCacheTTL(60*time.Second),
//	)
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Login exchanges credentials for a session token, stores the token on the
// client for subsequent calls, and returns the account record.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	payload, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		User  User   `json:"user"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}

	c.mu.Lock()
	c.bearerToken = resp.Token
	c.mu.Unlock()
	return &resp.User, nil
}

// Token returns the session token currently held by the client, if any.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bearerToken
}

// Me fetches the authenticated account from GET /api/v1/users/me.
func (c *Client) Me(ctx context.Context) (*User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/users/me", nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("decode user response: %w", err)
	}
	return &u, nil
}

// LedgerOverview fetches the chain length and tip hash.
func (c *Client) LedgerOverview(ctx context.Context) (*LedgerOverview, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/ledger", nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var ov LedgerOverview
	if err := json.Unmarshal(body, &ov); err != nil {
		return nil, fmt.Errorf("decode ledger overview: %w", err)
	}
	return &ov, nil
}

// VerifyLedger triggers a full-chain integrity check on the server and
// returns the IDs of any transactions whose stored hashes no longer hold.
func (c *Client) VerifyLedger(ctx context.Context) (*VerifyResult, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/ledger/verify", nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var res VerifyResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	return &res, nil
}

// Transactions lists ledger entries in append order, optionally filtered.
func (c *Client) Transactions(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	q := url.Values{}
	if f.LoanID != "" {
		q.Set("loan_id", f.LoanID)
	}
	if f.UserID != "" {
		q.Set("user_id", f.UserID)
	}
	path := "/api/v1/transactions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		Transactions []Transaction `json:"transactions"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decode transactions response: %w", err)
	}
	return wrapper.Transactions, nil
}

// Transaction fetches a single ledger entry by ID.
func (c *Client) Transaction(ctx context.Context, id string) (*Transaction, error) {
	if c.cache != nil {
		if tx, ok := c.cache.get(id); ok {
			return tx, nil
		}
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/ledger/transactions/"+id, nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var tx Transaction
	if err := json.Unmarshal(body, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction response: %w", err)
	}
	if c.cache != nil {
		c.cache.set(id, &tx)
	}
	return &tx, nil
}

// PendingLoans lists loans awaiting a lender.
func (c *Client) PendingLoans(ctx context.Context) ([]Loan, error) {
	return c.listLoans(ctx, "/api/v1/loans/pending")
}

// MyLoans lists loans the authenticated user borrowed or lent.
func (c *Client) MyLoans(ctx context.Context) ([]Loan, error) {
	return c.listLoans(ctx, "/api/v1/loans")
}

func (c *Client) listLoans(ctx context.Context, path string) ([]Loan, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Loans []Loan `json:"loans"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decode loans response: %w", err)
	}
	return wrapper.Loans, nil
}

// RequestLoan creates a pending loan request for the authenticated user.
func (c *Client) RequestLoan(ctx context.Context, amount, purpose string) (*Loan, error) {
	payload, _ := json.Marshal(map[string]string{"amount": amount, "purpose": purpose})
	return c.loanCall(ctx, http.MethodPost, "/api/v1/loans", payload)
}

// ApproveLoan funds a pending loan, with the authenticated user as lender.
func (c *Client) ApproveLoan(ctx context.Context, loanID string, dueDate time.Time) (*Loan, error) {
	payload, _ := json.Marshal(map[string]string{"due_date": dueDate.Format(time.RFC3339)})
	return c.loanCall(ctx, http.MethodPost, "/api/v1/loans/"+loanID+"/approve", payload)
}

// RejectLoan declines a pending loan request.
func (c *Client) RejectLoan(ctx context.Context, loanID string) (*Loan, error) {
	return c.loanCall(ctx, http.MethodPost, "/api/v1/loans/"+loanID+"/reject", nil)
}

// RepayLoan settles an active loan as the borrower.
func (c *Client) RepayLoan(ctx context.Context, loanID string) (*Loan, error) {
	return c.loanCall(ctx, http.MethodPost, "/api/v1/loans/"+loanID+"/repay", nil)
}

func (c *Client) loanCall(ctx context.Context, method, path string, payload []byte) (*Loan, error) {
	var bodyReader io.Reader
	if len(payload) > 0 {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := c.newRequest(ctx, method, path, bodyReader)
	if err != nil {
		return nil, err
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var loan Loan
	if err := json.Unmarshal(body, &loan); err != nil {
		return nil, fmt.Errorf("decode loan response: %w", err)
	}
	return &loan, nil
}

// newRequest builds an HTTP request against the API base URL.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes an HTTP request, attaching the Bearer token if present.
func (c *Client) do(req *http.Request) ([]byte, error) {
	c.mu.Lock()
	token := c.bearerToken
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, req.URL.Path)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, apiError(body))
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, apiError(body))
	}
	return body, nil
}

// apiError extracts the "error" field from an API error body, falling back to
// the raw body when it is not the expected JSON shape.
func apiError(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return string(body)
}

// --- simple in-memory transaction cache ---

type cacheEntry struct {
	tx        *Transaction
	expiresAt time.Time
}

type txCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

func newTxCache(ttl time.Duration) *txCache {
	return &txCache{entries: make(map[string]*cacheEntry), ttl: ttl}
}

func (tc *txCache) get(key string) (*Transaction, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	e, ok := tc.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.tx, true
}

func (tc *txCache) set(key string, tx *Transaction) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.entries[key] = &cacheEntry{tx: tx, expiresAt: time.Now().Add(tc.ttl)}
}
