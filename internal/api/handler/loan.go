package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trustfund-platform/trustfund/internal/auth"
	"github.com/trustfund-platform/trustfund/internal/ledger"
	"github.com/trustfund-platform/trustfund/internal/lending"
	"go.uber.org/zap"
)

// loanSvc is the subset of lending.Service used by LoanHandler.
type loanSvc interface {
	Request(ctx context.Context, borrowerID uuid.UUID, amount decimal.Decimal, purpose string) (*lending.Loan, error)
	Approve(ctx context.Context, loanID, lenderID uuid.UUID, dueDate time.Time) (*lending.Loan, error)
	Reject(ctx context.Context, loanID, lenderID uuid.UUID) (*lending.Loan, error)
	Repay(ctx context.Context, loanID, userID uuid.UUID) (*lending.Loan, error)
	Get(ctx context.Context, id uuid.UUID) (*lending.Loan, error)
	ListPending(ctx context.Context, limit, offset int) ([]*lending.Loan, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*lending.Loan, error)
}

// LoanHandler handles the loan lifecycle endpoints.
type LoanHandler struct {
	loans  loanSvc
	logger *zap.Logger
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(loans loanSvc, logger *zap.Logger) *LoanHandler {
	return &LoanHandler{loans: loans, logger: logger}
}

// Register mounts the loan routes on the given router group. All routes
// require an authenticated session.
func (h *LoanHandler) Register(rg *gin.RouterGroup, requireUser gin.HandlerFunc) {
	l := rg.Group("/loans", requireUser)
	{
		l.GET("", h.ListMine)
		l.GET("/pending", h.ListPending)
		l.GET("/:id", h.Get)
		l.POST("", h.Request)
		l.POST("/:id/approve", h.Approve)
		l.POST("/:id/reject", h.Reject)
		l.POST("/:id/repay", h.Repay)
	}
}

type requestLoanRequest struct {
	Amount  decimal.Decimal `json:"amount"  binding:"required"`
	Purpose string          `json:"purpose" binding:"required"`
}

type approveLoanRequest struct {
	DueDate time.Time `json:"due_date" binding:"required"`
}

// ListMine handles GET /loans — the caller's loans as borrower or lender.
func (h *LoanHandler) ListMine(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}
	limit, offset := pagination(c)

	loans, err := h.loans.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("list loans", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list loans"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": loans})
}

// ListPending handles GET /loans/pending — open requests awaiting a lender.
func (h *LoanHandler) ListPending(c *gin.Context) {
	limit, offset := pagination(c)

	loans, err := h.loans.ListPending(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list pending loans", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list loans"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": loans})
}

// Get handles GET /loans/:id.
func (h *LoanHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	loan, err := h.loans.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, lending.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "loan not found"})
			return
		}
		h.logger.Error("get loan", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get loan"})
		return
	}
	c.JSON(http.StatusOK, loan)
}

// Request handles POST /loans — creates a pending loan request.
func (h *LoanHandler) Request(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}

	var req requestLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loan, err := h.loans.Request(c.Request.Context(), userID, req.Amount, req.Purpose)
	if err != nil {
		var verr *ledger.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		h.logger.Error("request loan", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create loan request"})
		return
	}
	RecordLedgerAppend(string(ledger.TypeRequest))
	c.JSON(http.StatusCreated, loan)
}

// Approve handles POST /loans/:id/approve — the caller funds the loan.
func (h *LoanHandler) Approve(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	var req approveLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loan, err := h.loans.Approve(c.Request.Context(), id, userID, req.DueDate)
	if err != nil {
		h.writeTransitionError(c, "approve loan", err)
		return
	}
	RecordLedgerAppend(string(ledger.TypeApprove))
	c.JSON(http.StatusOK, loan)
}

// Reject handles POST /loans/:id/reject.
func (h *LoanHandler) Reject(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	loan, err := h.loans.Reject(c.Request.Context(), id, userID)
	if err != nil {
		h.writeTransitionError(c, "reject loan", err)
		return
	}
	RecordLedgerAppend(string(ledger.TypeReject))
	c.JSON(http.StatusOK, loan)
}

// Repay handles POST /loans/:id/repay — the borrower settles the loan.
func (h *LoanHandler) Repay(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	loan, err := h.loans.Repay(c.Request.Context(), id, userID)
	if err != nil {
		h.writeTransitionError(c, "repay loan", err)
		return
	}
	RecordLedgerAppend(string(ledger.TypeRepay))
	c.JSON(http.StatusOK, loan)
}

// writeTransitionError maps lifecycle errors to HTTP statuses.
func (h *LoanHandler) writeTransitionError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, lending.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "loan not found"})
	case errors.Is(err, lending.ErrSelfApproval), errors.Is(err, lending.ErrNotBorrower):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, lending.ErrInvalidTransition), errors.Is(err, lending.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		var verr *ledger.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		h.logger.Error(op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
	}
}

// pagination reads limit/offset query params with sane defaults.
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
