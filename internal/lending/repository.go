package lending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a loan is not found in the database.
var ErrNotFound = errors.New("loan not found")

// ErrConflict is returned when a guarded status update matched no row,
// meaning the loan left the expected state between read and write.
var ErrConflict = errors.New("loan state changed concurrently")

// LoanRepository provides CRUD operations for loans against PostgreSQL.
type LoanRepository struct {
	db *pgxpool.Pool
}

// NewLoanRepository creates a new LoanRepository.
func NewLoanRepository(db *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{db: db}
}

const loanColumns = "id, borrower_id, lender_id, amount, purpose, status, due_date, created_at, approved_at, repaid_at, updated_at"

// Create inserts a new loan. The caller assigns the ID so the ledger entry
// can be written before the row exists.
func (r *LoanRepository) Create(ctx context.Context, l *Loan) error {
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	q := `
		INSERT INTO loans (id, borrower_id, amount, purpose, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.Exec(ctx, q,
		l.ID, l.BorrowerID, l.Amount, l.Purpose, l.Status, l.CreatedAt, l.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create loan: %w", err)
	}
	return nil
}

// GetByID retrieves a loan by its UUID.
func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*Loan, error) {
	q := "SELECT " + loanColumns + " FROM loans WHERE id = $1"
	rows, err := r.db.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanLoan(rows)
}

// ListByStatus returns loans in the given state, newest first.
func (r *LoanRepository) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Loan, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT " + loanColumns + ` FROM loans
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, q, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLoans(rows)
}

// ListByUser returns loans where the user is borrower or lender, newest first.
func (r *LoanRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Loan, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT " + loanColumns + ` FROM loans
		WHERE borrower_id = $1 OR lender_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLoans(rows)
}

// Approve transitions a pending loan to approved, recording the lender and
// due date. Returns ErrConflict if the loan is no longer pending.
func (r *LoanRepository) Approve(ctx context.Context, id, lenderID uuid.UUID, dueDate time.Time) error {
	now := time.Now().UTC()
	q := `
		UPDATE loans SET
			status      = 'approved',
			lender_id   = $2,
			due_date    = $3,
			approved_at = $4,
			updated_at  = $4
		WHERE id = $1 AND status = 'pending'`
	tag, err := r.db.Exec(ctx, q, id, lenderID, dueDate, now)
	if err != nil {
		return fmt.Errorf("approve loan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// Reject transitions a pending loan to rejected.
// Returns ErrConflict if the loan is no longer pending.
func (r *LoanRepository) Reject(ctx context.Context, id uuid.UUID) error {
	q := `UPDATE loans SET status = 'rejected', updated_at = $2 WHERE id = $1 AND status = 'pending'`
	tag, err := r.db.Exec(ctx, q, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reject loan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// Repay transitions an approved or overdue loan to repaid.
// Returns ErrConflict if the loan is in neither state.
func (r *LoanRepository) Repay(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	q := `
		UPDATE loans SET status = 'repaid', repaid_at = $2, updated_at = $2
		WHERE id = $1 AND status IN ('approved', 'overdue')`
	tag, err := r.db.Exec(ctx, q, id, now)
	if err != nil {
		return fmt.Errorf("repay loan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// MarkOverdue flips approved loans whose due date has passed to overdue and
// returns how many were affected.
func (r *LoanRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	q := `
		UPDATE loans SET status = 'overdue', updated_at = $1
		WHERE status = 'approved' AND due_date IS NOT NULL AND due_date < $1`
	tag, err := r.db.Exec(ctx, q, asOf.UTC())
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountByStatus returns how many loans carry each status.
func (r *LoanRepository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	rows, err := r.db.Query(ctx, "SELECT status, COUNT(*) FROM loans GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count loans: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int64)
	for rows.Next() {
		var s Status
		var n int64
		if err := rows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("scan loan count: %w", err)
		}
		counts[s] = n
	}
	return counts, rows.Err()
}

func scanLoans(rows pgx.Rows) ([]*Loan, error) {
	var loans []*Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

func scanLoan(rows pgx.Rows) (*Loan, error) {
	l := &Loan{}
	if err := rows.Scan(
		&l.ID, &l.BorrowerID, &l.LenderID, &l.Amount, &l.Purpose,
		&l.Status, &l.DueDate, &l.CreatedAt, &l.ApprovedAt, &l.RepaidAt, &l.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan loan: %w", err)
	}
	return l, nil
}
