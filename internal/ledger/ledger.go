// Package ledger implements the hash-chained transaction ledger at the heart
// of the lending platform. Every lending-lifecycle event (request, approve,
// reject, repay) is appended as an immutable Transaction linked to its
// predecessor by a SHA-256 content hash, and Verify walks the full history
// to detect tampering.
//
// The chaining and verification logic is written once against the Store
// interface; two backends are provided:
//   - MemoryStore: in-process, for testing and development.
//   - PostgresStore: durable, serialising appends with an advisory lock.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a transaction lookup finds no matching record.
var ErrNotFound = errors.New("transaction not found")

// ValidationError reports malformed input to Append. It is never retried;
// callers surface it immediately.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// Filter narrows a transaction listing. Zero-value fields are ignored.
type Filter struct {
	LoanID uuid.UUID
	UserID uuid.UUID
}

// Store is the persistence interface for the ledger. Implementations must
// guarantee a single global total order over transactions: the prevHash seen
// by Append's build callback and the order returned by ListAll must agree.
type Store interface {
	// Append invokes build with the current chain tail hash (GenesisHash when
	// the store is empty) and persists the returned record, all under the
	// store's append lock so concurrent appends cannot build on the same tail.
	Append(ctx context.Context, build func(prevHash string) (*Transaction, error)) (*Transaction, error)

	// ListAll returns the complete history, oldest first.
	ListAll(ctx context.Context) ([]*Transaction, error)

	// List returns transactions matching the filter, oldest first.
	List(ctx context.Context, f Filter) ([]*Transaction, error)

	// Get returns the transaction with the given id, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// Tip returns the chain tail's CurrHash, or GenesisHash when empty.
	Tip(ctx context.Context) (string, error)

	// Len returns the total number of transactions.
	Len(ctx context.Context) (int, error)
}

// VerifyResult is the outcome of a full chain verification. A non-empty
// InvalidIDs set is a reportable finding, not an error: the caller decides
// policy (alert, block approvals, flag for audit).
type VerifyResult struct {
	Valid      bool        `json:"valid"`
	InvalidIDs []uuid.UUID `json:"invalid_ids"`
}

// Ledger is the append/verify core, independent of the storage backend.
type Ledger struct {
	store  Store
	logger *zap.Logger
}

// New creates a Ledger on top of the given store.
func New(store Store, logger *zap.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// Append records one lending event, chained to the current global tail.
// Exactly one new record is written; no existing record is touched. Storage
// failures are propagated without retry — the loan lifecycle caller owns
// compensation, since only it knows whether the triggering state change
// should be rolled back.
func (l *Ledger) Append(ctx context.Context, loanID, userID uuid.UUID, amount decimal.Decimal, txType Type) (*Transaction, error) {
	if loanID == uuid.Nil {
		return nil, &ValidationError{Field: "loan_id", Reason: "required"}
	}
	if userID == uuid.Nil {
		return nil, &ValidationError{Field: "user_id", Reason: "required"}
	}
	if amount.IsNegative() {
		return nil, &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if !txType.Valid() {
		return nil, &ValidationError{Field: "transaction_type", Reason: "must be one of request, approve, reject, repay"}
	}

	tx, err := l.store.Append(ctx, func(prevHash string) (*Transaction, error) {
		t := &Transaction{
			ID:        uuid.New(),
			LoanID:    loanID,
			UserID:    userID,
			Amount:    amount,
			Type:      txType,
			PrevHash:  prevHash,
			CreatedAt: time.Now().UTC(),
		}
		t.CurrHash = t.hash()
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("append %s transaction: %w", txType, err)
	}

	l.logger.Debug("ledger transaction appended",
		zap.String("id", tx.ID.String()),
		zap.String("loan_id", tx.LoanID.String()),
		zap.String("type", string(tx.Type)),
	)
	return tx, nil
}

// Verify replays the full history and checks the chain invariants. It either
// checks the whole sequence or fails outright; it never reports a partial
// judgement.
func (l *Ledger) Verify(ctx context.Context) (*VerifyResult, error) {
	txs, err := l.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read transaction history: %w", err)
	}
	return VerifyChain(txs), nil
}

// List returns transactions matching the filter, oldest first.
func (l *Ledger) List(ctx context.Context, f Filter) ([]*Transaction, error) {
	txs, err := l.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Get returns a single transaction by id.
func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return l.store.Get(ctx, id)
}

// Tip returns the chain tail's hash, GenesisHash when the ledger is empty.
func (l *Ledger) Tip(ctx context.Context) (string, error) {
	return l.store.Tip(ctx)
}

// Len returns the number of recorded transactions.
func (l *Ledger) Len(ctx context.Context) (int, error) {
	return l.store.Len(ctx)
}

// VerifyChain checks an ordered transaction sequence (oldest first) against
// the chain invariants and reports every offending transaction id.
//
// Two checks per record: linkage (PrevHash must equal the predecessor's
// stored CurrHash, or GenesisHash for the first record) and content
// (recomputing the hash from the stored fields must reproduce CurrHash).
// The expected hash then advances to the record's stored CurrHash regardless
// of validity, so a single corrupted record flags only itself and does not
// cascade onto every successor.
//
// An empty sequence is trivially valid.
func VerifyChain(txs []*Transaction) *VerifyResult {
	expected := GenesisHash
	invalid := []uuid.UUID{}

	for _, t := range txs {
		if t.PrevHash != expected || t.hash() != t.CurrHash {
			invalid = append(invalid, t.ID)
		}
		expected = t.CurrHash
	}

	return &VerifyResult{
		Valid:      len(invalid) == 0,
		InvalidIDs: invalid,
	}
}
