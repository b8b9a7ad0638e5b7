package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// advisoryLockKey is a stable PostgreSQL advisory lock key used to serialise
// concurrent appends. The value is arbitrary but must be consistent across
// all API instances sharing the database.
const advisoryLockKey = int64(7_415_082_011)

// PostgresStore persists the transaction chain to PostgreSQL. It implements
// the Store interface.
//
// Appends run inside a single transaction holding an advisory lock, so the
// tail read and the insert are atomic even across multiple processes; a plain
// read-then-insert could silently build on a stale tail. A bigserial seq
// column fixes the total order used both for chaining and for verification.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const txColumns = "id, loan_id, user_id, amount, transaction_type, prev_hash, curr_hash, created_at"

// Append implements Store.
func (s *PostgresStore) Append(ctx context.Context, build func(prevHash string) (*Transaction, error)) (*Transaction, error) {
	dbtx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer dbtx.Rollback(ctx) //nolint:errcheck

	// Transaction-scoped advisory lock; released automatically on commit or
	// rollback.
	if _, err := dbtx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	prevHash := GenesisHash
	err = dbtx.QueryRow(ctx,
		"SELECT curr_hash FROM transactions ORDER BY seq DESC LIMIT 1",
	).Scan(&prevHash)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("read chain tail: %w", err)
	}

	tx, err := build(prevHash)
	if err != nil {
		return nil, err
	}

	if _, err := dbtx.Exec(ctx,
		`INSERT INTO transactions (id, loan_id, user_id, amount, transaction_type, prev_hash, curr_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tx.ID, tx.LoanID, tx.UserID, tx.Amount,
		tx.Type, tx.PrevHash, tx.CurrHash, tx.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	if err := dbtx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return tx, nil
}

// ListAll implements Store.
func (s *PostgresStore) ListAll(ctx context.Context) ([]*Transaction, error) {
	query := "SELECT " + txColumns + " FROM transactions ORDER BY seq ASC"
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*Transaction, error) {
	query := `
		SELECT ` + txColumns + ` FROM transactions
		WHERE ($1::uuid IS NULL OR loan_id = $1)
		  AND ($2::uuid IS NULL OR user_id = $2)
		ORDER BY seq ASC`

	rows, err := s.pool.Query(ctx, query, nullableID(f.LoanID), nullableID(f.UserID))
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	query := "SELECT " + txColumns + " FROM transactions WHERE id = $1"
	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query transaction: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanTransaction(rows)
}

// Tip implements Store.
func (s *PostgresStore) Tip(ctx context.Context) (string, error) {
	hash := GenesisHash
	err := s.pool.QueryRow(ctx,
		"SELECT curr_hash FROM transactions ORDER BY seq DESC LIMIT 1",
	).Scan(&hash)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("read chain tail: %w", err)
	}
	return hash, nil
}

// Len implements Store.
func (s *PostgresStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func scanTransactions(rows pgx.Rows) ([]*Transaction, error) {
	var txs []*Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func scanTransaction(rows pgx.Rows) (*Transaction, error) {
	t := &Transaction{}
	if err := rows.Scan(
		&t.ID, &t.LoanID, &t.UserID, &t.Amount,
		&t.Type, &t.PrevHash, &t.CurrHash, &t.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}

// nullableID maps uuid.Nil to SQL NULL so unset filter fields match all rows.
func nullableID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
