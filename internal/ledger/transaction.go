package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenesisHash is the well-known sentinel used as PrevHash by the first
// transaction ever written. No stored transaction carries it as CurrHash,
// so no later transaction may legally reuse it as PrevHash.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Type is the closed set of lending-lifecycle events recorded in the ledger.
type Type string

const (
	TypeRequest Type = "request"
	TypeApprove Type = "approve"
	TypeReject  Type = "reject"
	TypeRepay   Type = "repay"
)

// Valid reports whether t is one of the four recognised event types.
func (t Type) Valid() bool {
	switch t {
	case TypeRequest, TypeApprove, TypeReject, TypeRepay:
		return true
	}
	return false
}

// Transaction is one immutable, hash-linked record of a lending event.
// Once written it is never updated or deleted; the chain invariant is that
// each transaction's PrevHash equals its predecessor's CurrHash in global
// creation order.
type Transaction struct {
	ID        uuid.UUID       `json:"id"`
	LoanID    uuid.UUID       `json:"loan_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Type      Type            `json:"transaction_type"`
	PrevHash  string          `json:"prev_hash"`
	CurrHash  string          `json:"curr_hash"`
	CreatedAt time.Time       `json:"created_at"`
}

// ComputeHash derives a transaction hash from its content fields and the
// predecessor's hash. The encoding is a fixed-order pipe-delimited string;
// the amount is canonicalised to two decimal places so that the same value
// hashes identically regardless of how it was parsed or scanned. ID and
// CreatedAt are deliberately excluded: verification must be able to recompute
// the hash from the persisted content fields alone.
func ComputeHash(loanID, userID uuid.UUID, amount decimal.Decimal, txType Type, prevHash string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s",
		loanID, userID, amount.StringFixed(2), txType, prevHash,
	)
	return hex.EncodeToString(h.Sum(nil))
}

// hash recomputes the transaction's CurrHash from its stored fields.
func (t *Transaction) hash() string {
	return ComputeHash(t.LoanID, t.UserID, t.Amount, t.Type, t.PrevHash)
}
