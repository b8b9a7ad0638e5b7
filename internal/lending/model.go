package lending

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of a loan.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusRepaid   Status = "repaid"
	StatusOverdue  Status = "overdue"
)

// Loan is a borrowing request and, once approved, the funded loan itself.
// Every state transition is mirrored by exactly one ledger transaction.
type Loan struct {
	ID         uuid.UUID       `json:"id"                    db:"id"`
	BorrowerID uuid.UUID       `json:"borrower_id"           db:"borrower_id"`
	LenderID   *uuid.UUID      `json:"lender_id,omitempty"   db:"lender_id"`
	Amount     decimal.Decimal `json:"amount"                db:"amount"`
	Purpose    string          `json:"purpose"               db:"purpose"`
	Status     Status          `json:"status"                db:"status"`
	DueDate    *time.Time      `json:"due_date,omitempty"    db:"due_date"`
	CreatedAt  time.Time       `json:"created_at"            db:"created_at"`
	ApprovedAt *time.Time      `json:"approved_at,omitempty" db:"approved_at"`
	RepaidAt   *time.Time      `json:"repaid_at,omitempty"   db:"repaid_at"`
	UpdatedAt  time.Time       `json:"updated_at"            db:"updated_at"`
}

// Repayable reports whether the loan is in a state the borrower can settle.
// Overdue loans can still be repaid.
func (l *Loan) Repayable() bool {
	return l.Status == StatusApproved || l.Status == StatusOverdue
}
