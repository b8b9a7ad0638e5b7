// Package lending owns the loan lifecycle: request, approve, reject, repay,
// and the overdue sweep. Each state transition writes exactly one ledger
// transaction before the loan row itself is touched, so a loan can never
// advance state without a corresponding ledger record. The reverse window —
// a ledger record whose loan transition then failed — is possible and shows
// up in audit as an event without a matching state change.
package lending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trustfund-platform/trustfund/internal/email"
	"github.com/trustfund-platform/trustfund/internal/ledger"
	"github.com/trustfund-platform/trustfund/internal/users"
	"go.uber.org/zap"
)

// repayTrustBonus is added to the borrower's trust score on repayment.
const repayTrustBonus = 5

// ErrSelfApproval is returned when a borrower tries to fund their own loan.
var ErrSelfApproval = errors.New("borrowers cannot approve their own loan")

// ErrInvalidTransition is returned for an operation not legal in the loan's
// current state, e.g. repaying a pending loan.
var ErrInvalidTransition = errors.New("operation not allowed in current loan state")

// ErrNotBorrower is returned when someone other than the borrower tries to
// repay a loan.
var ErrNotBorrower = errors.New("only the borrower can repay a loan")

// loanRepo is the persistence interface for the lending service.
// *LoanRepository satisfies this interface.
type loanRepo interface {
	Create(ctx context.Context, l *Loan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Loan, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Loan, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Loan, error)
	Approve(ctx context.Context, id, lenderID uuid.UUID, dueDate time.Time) error
	Reject(ctx context.Context, id uuid.UUID) error
	Repay(ctx context.Context, id uuid.UUID) error
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}

// txLedger is the ledger interface consumed by the lending service.
// *ledger.Ledger satisfies this interface.
type txLedger interface {
	Append(ctx context.Context, loanID, userID uuid.UUID, amount decimal.Decimal, txType ledger.Type) (*ledger.Transaction, error)
}

// accounts is the slice of the user service the lending flow needs.
// *users.UserService satisfies this interface.
type accounts interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
	AdjustTrustScore(ctx context.Context, userID uuid.UUID, delta int) error
}

// Service contains the loan lifecycle business logic.
type Service struct {
	repo     loanRepo
	ledger   txLedger
	accounts accounts
	mailer   email.Sender // nil = no notifications
	logger   *zap.Logger
}

// NewService creates a lending Service. mailer may be nil to disable
// borrower notifications.
func NewService(repo loanRepo, l txLedger, accounts accounts, mailer email.Sender, logger *zap.Logger) *Service {
	return &Service{repo: repo, ledger: l, accounts: accounts, mailer: mailer, logger: logger}
}

// Request creates a new pending loan for the borrower. The ledger entry is
// written first; a failed append blocks the request entirely.
func (s *Service) Request(ctx context.Context, borrowerID uuid.UUID, amount decimal.Decimal, purpose string) (*Loan, error) {
	if !amount.IsPositive() {
		return nil, &ledger.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if purpose == "" {
		return nil, &ledger.ValidationError{Field: "purpose", Reason: "required"}
	}
	if _, err := s.accounts.GetByID(ctx, borrowerID); err != nil {
		return nil, fmt.Errorf("lookup borrower: %w", err)
	}

	loan := &Loan{
		ID:         uuid.New(),
		BorrowerID: borrowerID,
		Amount:     amount,
		Purpose:    purpose,
		Status:     StatusPending,
	}

	if _, err := s.ledger.Append(ctx, loan.ID, borrowerID, amount, ledger.TypeRequest); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, loan); err != nil {
		return nil, err
	}

	s.logger.Info("loan requested",
		zap.String("loan_id", loan.ID.String()),
		zap.String("borrower_id", borrowerID.String()),
		zap.String("amount", amount.StringFixed(2)),
	)
	return loan, nil
}

// Approve funds a pending loan: the lender commits the principal and sets a
// due date. The borrower is notified by email when a mailer is configured.
func (s *Service) Approve(ctx context.Context, loanID, lenderID uuid.UUID, dueDate time.Time) (*Loan, error) {
	loan, err := s.repo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != StatusPending {
		return nil, ErrInvalidTransition
	}
	if loan.BorrowerID == lenderID {
		return nil, ErrSelfApproval
	}
	if !dueDate.After(time.Now()) {
		return nil, &ledger.ValidationError{Field: "due_date", Reason: "must be in the future"}
	}

	if _, err := s.ledger.Append(ctx, loan.ID, lenderID, loan.Amount, ledger.TypeApprove); err != nil {
		return nil, err
	}
	if err := s.repo.Approve(ctx, loan.ID, lenderID, dueDate); err != nil {
		return nil, err
	}

	s.notifyBorrower(ctx, loan,
		"Your loan was funded",
		fmt.Sprintf("Your request for %s (%s) has been approved. Repayment is due by %s.",
			loan.Amount.StringFixed(2), loan.Purpose, dueDate.Format("2 January 2006")),
	)

	s.logger.Info("loan approved",
		zap.String("loan_id", loan.ID.String()),
		zap.String("lender_id", lenderID.String()),
	)
	return s.repo.GetByID(ctx, loan.ID)
}

// Reject declines a pending loan on behalf of the acting lender.
func (s *Service) Reject(ctx context.Context, loanID, lenderID uuid.UUID) (*Loan, error) {
	loan, err := s.repo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != StatusPending {
		return nil, ErrInvalidTransition
	}
	if loan.BorrowerID == lenderID {
		return nil, ErrSelfApproval
	}

	if _, err := s.ledger.Append(ctx, loan.ID, lenderID, loan.Amount, ledger.TypeReject); err != nil {
		return nil, err
	}
	if err := s.repo.Reject(ctx, loan.ID); err != nil {
		return nil, err
	}

	s.logger.Info("loan rejected", zap.String("loan_id", loan.ID.String()))
	return s.repo.GetByID(ctx, loan.ID)
}

// Repay settles an approved or overdue loan. Only the borrower may repay.
// A successful repayment raises the borrower's trust score.
func (s *Service) Repay(ctx context.Context, loanID, userID uuid.UUID) (*Loan, error) {
	loan, err := s.repo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.BorrowerID != userID {
		return nil, ErrNotBorrower
	}
	if !loan.Repayable() {
		return nil, ErrInvalidTransition
	}

	if _, err := s.ledger.Append(ctx, loan.ID, userID, loan.Amount, ledger.TypeRepay); err != nil {
		return nil, err
	}
	if err := s.repo.Repay(ctx, loan.ID); err != nil {
		return nil, err
	}

	// Non-fatal: the repayment stands even if the score bump fails.
	if err := s.accounts.AdjustTrustScore(ctx, loan.BorrowerID, repayTrustBonus); err != nil {
		s.logger.Warn("trust score bump after repayment failed",
			zap.String("borrower_id", loan.BorrowerID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("loan repaid", zap.String("loan_id", loan.ID.String()))
	return s.repo.GetByID(ctx, loan.ID)
}

// Get returns a single loan by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Loan, error) {
	return s.repo.GetByID(ctx, id)
}

// ListPending returns open loan requests awaiting a lender.
func (s *Service) ListPending(ctx context.Context, limit, offset int) ([]*Loan, error) {
	return s.repo.ListByStatus(ctx, StatusPending, limit, offset)
}

// ListByUser returns loans where the user participates as borrower or lender.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Loan, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// MarkOverdue sweeps approved loans past their due date into the overdue
// state. Run periodically by the scheduler.
func (s *Service) MarkOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.MarkOverdue(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("loans marked overdue", zap.Int64("count", n))
	}
	return n, nil
}

// StatusCounts returns the number of loans per status, for monitoring.
func (s *Service) StatusCounts(ctx context.Context) (map[Status]int64, error) {
	return s.repo.CountByStatus(ctx)
}

// notifyBorrower emails the loan's borrower in a non-fatal manner.
func (s *Service) notifyBorrower(ctx context.Context, loan *Loan, subject, body string) {
	if s.mailer == nil {
		return
	}
	borrower, err := s.accounts.GetByID(ctx, loan.BorrowerID)
	if err != nil {
		s.logger.Warn("lookup borrower for notification", zap.Error(err))
		return
	}
	if err := s.mailer.Send(ctx, borrower.Email, subject, body); err != nil {
		s.logger.Warn("borrower notification failed",
			zap.String("loan_id", loan.ID.String()),
			zap.Error(err),
		)
	}
}
