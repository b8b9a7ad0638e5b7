package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trustfund-platform/trustfund/internal/api/handler"
	"github.com/trustfund-platform/trustfund/internal/auth"
	"github.com/trustfund-platform/trustfund/internal/lending"
	"go.uber.org/zap"
)

type stubLoanSvc struct {
	loans map[uuid.UUID]*lending.Loan
}

func newStubLoanSvc() *stubLoanSvc {
	return &stubLoanSvc{loans: make(map[uuid.UUID]*lending.Loan)}
}

func (s *stubLoanSvc) Request(_ context.Context, borrowerID uuid.UUID, amount decimal.Decimal, purpose string) (*lending.Loan, error) {
	l := &lending.Loan{
		ID:         uuid.New(),
		BorrowerID: borrowerID,
		Amount:     amount,
		Purpose:    purpose,
		Status:     lending.StatusPending,
		CreatedAt:  time.Now(),
	}
	s.loans[l.ID] = l
	return l, nil
}

func (s *stubLoanSvc) Approve(_ context.Context, loanID, lenderID uuid.UUID, dueDate time.Time) (*lending.Loan, error) {
	l, ok := s.loans[loanID]
	if !ok {
		return nil, lending.ErrNotFound
	}
	if l.BorrowerID == lenderID {
		return nil, lending.ErrSelfApproval
	}
	if l.Status != lending.StatusPending {
		return nil, lending.ErrInvalidTransition
	}
	l.Status = lending.StatusApproved
	l.LenderID = &lenderID
	l.DueDate = &dueDate
	return l, nil
}

func (s *stubLoanSvc) Reject(_ context.Context, loanID, _ uuid.UUID) (*lending.Loan, error) {
	l, ok := s.loans[loanID]
	if !ok {
		return nil, lending.ErrNotFound
	}
	l.Status = lending.StatusRejected
	return l, nil
}

func (s *stubLoanSvc) Repay(_ context.Context, loanID, userID uuid.UUID) (*lending.Loan, error) {
	l, ok := s.loans[loanID]
	if !ok {
		return nil, lending.ErrNotFound
	}
	if l.BorrowerID != userID {
		return nil, lending.ErrNotBorrower
	}
	if !l.Repayable() {
		return nil, lending.ErrInvalidTransition
	}
	l.Status = lending.StatusRepaid
	return l, nil
}

func (s *stubLoanSvc) Get(_ context.Context, id uuid.UUID) (*lending.Loan, error) {
	l, ok := s.loans[id]
	if !ok {
		return nil, lending.ErrNotFound
	}
	return l, nil
}

func (s *stubLoanSvc) ListPending(_ context.Context, _, _ int) ([]*lending.Loan, error) {
	var out []*lending.Loan
	for _, l := range s.loans {
		if l.Status == lending.StatusPending {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *stubLoanSvc) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]*lending.Loan, error) {
	var out []*lending.Loan
	for _, l := range s.loans {
		if l.BorrowerID == userID || (l.LenderID != nil && *l.LenderID == userID) {
			out = append(out, l)
		}
	}
	return out, nil
}

type loanFixture struct {
	router *gin.Engine
	svc    *stubLoanSvc
	issuer *auth.TokenIssuer
}

func setupLoanRouter(t *testing.T) *loanFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc := newStubLoanSvc()
	issuer := newTestIssuer(t)
	h := handler.NewLoanHandler(svc, zap.NewNop())
	h.Register(r.Group("/api/v1"), auth.RequireUser(issuer))
	return &loanFixture{router: r, svc: svc, issuer: issuer}
}

func (f *loanFixture) do(t *testing.T, method, path string, asUser uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if asUser != uuid.Nil {
		token, err := f.issuer.Issue(asUser, "user@example.com", "User")
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestLoanRoutes_requireAuth(t *testing.T) {
	f := setupLoanRouter(t)

	w := f.do(t, http.MethodGet, "/api/v1/loans", uuid.Nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", w.Code)
	}
}

func TestRequestLoan_201(t *testing.T) {
	f := setupLoanRouter(t)
	borrower := uuid.New()

	w := f.do(t, http.MethodPost, "/api/v1/loans", borrower, gin.H{
		"amount":  "500.00",
		"purpose": "Medical emergency",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var loan lending.Loan
	if err := json.Unmarshal(w.Body.Bytes(), &loan); err != nil {
		t.Fatal(err)
	}
	if loan.Status != lending.StatusPending {
		t.Errorf("status: got %s, want pending", loan.Status)
	}
	if loan.BorrowerID != borrower {
		t.Error("borrower not taken from the session token")
	}
}

func TestRequestLoan_400_missingFields(t *testing.T) {
	f := setupLoanRouter(t)

	w := f.do(t, http.MethodPost, "/api/v1/loans", uuid.New(), gin.H{"amount": "500.00"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestApproveLoan(t *testing.T) {
	f := setupLoanRouter(t)
	borrower := uuid.New()
	lender := uuid.New()

	loan, err := f.svc.Request(context.Background(), borrower, decimal.NewFromInt(500), "Rent")
	if err != nil {
		t.Fatal(err)
	}
	due := time.Now().AddDate(0, 0, 30).UTC().Format(time.RFC3339)

	t.Run("self approval is forbidden", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/loans/"+loan.ID.String()+"/approve", borrower, gin.H{"due_date": due})
		if w.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("lender approves", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/loans/"+loan.ID.String()+"/approve", lender, gin.H{"due_date": due})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("second approval conflicts", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/loans/"+loan.ID.String()+"/approve", lender, gin.H{"due_date": due})
		if w.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", w.Code)
		}
	})

	t.Run("unknown loan is 404", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/loans/"+uuid.NewString()+"/approve", lender, gin.H{"due_date": due})
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})
}

func TestRepayLoan(t *testing.T) {
	f := setupLoanRouter(t)
	borrower := uuid.New()
	lender := uuid.New()

	loan, err := f.svc.Request(context.Background(), borrower, decimal.NewFromInt(500), "Rent")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Approve(context.Background(), loan.ID, lender, time.Now().AddDate(0, 0, 30)); err != nil {
		t.Fatal(err)
	}

	t.Run("lender cannot repay", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/loans/"+loan.ID.String()+"/repay", lender, nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("borrower repays", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/loans/"+loan.ID.String()+"/repay", borrower, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestListLoans(t *testing.T) {
	f := setupLoanRouter(t)
	borrower := uuid.New()
	other := uuid.New()

	if _, err := f.svc.Request(context.Background(), borrower, decimal.NewFromInt(500), "Rent"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Request(context.Background(), other, decimal.NewFromInt(900), "Travel"); err != nil {
		t.Fatal(err)
	}

	t.Run("mine", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/loans", borrower, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var resp struct {
			Loans []*lending.Loan `json:"loans"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if len(resp.Loans) != 1 {
			t.Errorf("expected 1 loan, got %d", len(resp.Loans))
		}
	})

	t.Run("pending", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/loans/pending", borrower, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var resp struct {
			Loans []*lending.Loan `json:"loans"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if len(resp.Loans) != 2 {
			t.Errorf("expected 2 pending loans, got %d", len(resp.Loans))
		}
	})
}
