package documents

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies which KYC document a record covers.
type Type string

const (
	TypeAadhaar   Type = "aadhaar"
	TypeTaxReturn Type = "tax_return"
	TypeSelfie    Type = "selfie"
)

// Valid reports whether t is a known document type.
func (t Type) Valid() bool {
	switch t {
	case TypeAadhaar, TypeTaxReturn, TypeSelfie:
		return true
	}
	return false
}

// Document is one uploaded KYC document and its verification outcome.
// Only metadata is retained; file contents are discarded after the
// verification pass.
type Document struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Type        Type      `json:"type" db:"doc_type"`
	FileName    string    `json:"file_name" db:"file_name"`
	ContentType string    `json:"content_type" db:"content_type"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	Verified    bool      `json:"verified" db:"verified"`
	Score       int       `json:"score" db:"score"`
	Message     string    `json:"message" db:"message"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// KYCStatus aggregates a user's verification state across the three
// required document types.
type KYCStatus struct {
	AadhaarVerified   bool       `json:"aadhaar_verified"`
	TaxReturnVerified bool       `json:"tax_return_verified"`
	SelfieVerified    bool       `json:"selfie_verified"`
	LastUpdated       *time.Time `json:"last_updated,omitempty"`
}

// Complete reports whether all three document types are verified.
func (s KYCStatus) Complete() bool {
	return s.AadhaarVerified && s.TaxReturnVerified && s.SelfieVerified
}
