package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory, thread-safe Store implementation. It is
// primarily useful for tests and single-process development setups that do
// not need durable persistence.
type MemoryStore struct {
	mu  sync.RWMutex
	txs []*Transaction
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append implements Store. The mutex serialises concurrent appends so both
// tail read and insert happen atomically.
func (s *MemoryStore) Append(_ context.Context, build func(prevHash string) (*Transaction, error)) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevHash := GenesisHash
	if n := len(s.txs); n > 0 {
		prevHash = s.txs[n-1].CurrHash
	}

	tx, err := build(prevHash)
	if err != nil {
		return nil, err
	}
	s.txs = append(s.txs, tx)
	return tx, nil
}

// ListAll implements Store.
func (s *MemoryStore) ListAll(_ context.Context) ([]*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Transaction, len(s.txs))
	copy(out, s.txs)
	return out, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, f Filter) ([]*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Transaction
	for _, t := range s.txs {
		if f.LoanID != uuid.Nil && t.LoanID != f.LoanID {
			continue
		}
		if f.UserID != uuid.Nil && t.UserID != f.UserID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.txs {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, ErrNotFound
}

// Tip implements Store.
func (s *MemoryStore) Tip(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.txs) == 0 {
		return GenesisHash, nil
	}
	return s.txs[len(s.txs)-1].CurrHash, nil
}

// Len implements Store.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txs), nil
}
