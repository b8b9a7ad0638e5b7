package users

import (
	"time"

	"github.com/google/uuid"
)

// Trust score bounds and the score assigned to a freshly registered account.
const (
	MinTrustScore     = 0
	MaxTrustScore     = 100
	InitialTrustScore = 50
)

// User represents a TrustFund account holder. The trust score is the
// community credibility value (0–100) that lenders see next to a loan
// request; it moves with repayments, KYC verification, and the credit
// assessment questionnaire.
type User struct {
	ID            uuid.UUID `json:"id"             db:"id"`
	Email         string    `json:"email"          db:"email"`
	PasswordHash  string    `json:"-"              db:"password_hash"`
	Name          string    `json:"name"           db:"name"`
	Phone         string    `json:"phone"          db:"phone"`
	TrustScore    int       `json:"trust_score"    db:"trust_score"`
	EmailVerified bool      `json:"email_verified" db:"email_verified"`
	CreatedAt     time.Time `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"     db:"updated_at"`
}
