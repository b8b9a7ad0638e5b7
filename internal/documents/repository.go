package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no document matches the query.
var ErrNotFound = errors.New("document not found")

const docColumns = "id, user_id, doc_type, file_name, content_type, size_bytes, verified, score, message, created_at"

// Repository persists KYC documents in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a document Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a document record and fills in its timestamp.
func (r *Repository) Create(ctx context.Context, d *Document) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO documents (id, user_id, doc_type, file_name, content_type, size_bytes, verified, score, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		d.ID, d.UserID, d.Type, d.FileName, d.ContentType, d.SizeBytes, d.Verified, d.Score, d.Message,
	).Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// ListByUser returns a user's documents, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Document, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+docColumns+" FROM documents WHERE user_id = $1 ORDER BY created_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// KYCStatus reports which document types have at least one verified
// upload for the user, and the time of the most recent verified upload.
func (r *Repository) KYCStatus(ctx context.Context, userID uuid.UUID) (*KYCStatus, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doc_type, MAX(created_at)
		FROM documents
		WHERE user_id = $1 AND verified
		GROUP BY doc_type`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("query kyc status: %w", err)
	}
	defer rows.Close()

	status := &KYCStatus{}
	for rows.Next() {
		var docType Type
		var at time.Time
		if err := rows.Scan(&docType, &at); err != nil {
			return nil, fmt.Errorf("scan kyc status: %w", err)
		}
		switch docType {
		case TypeAadhaar:
			status.AadhaarVerified = true
		case TypeTaxReturn:
			status.TaxReturnVerified = true
		case TypeSelfie:
			status.SelfieVerified = true
		}
		if status.LastUpdated == nil || at.After(*status.LastUpdated) {
			ts := at
			status.LastUpdated = &ts
		}
	}
	return status, rows.Err()
}

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.UserID, &d.Type, &d.FileName, &d.ContentType,
		&d.SizeBytes, &d.Verified, &d.Score, &d.Message, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &d, nil
}
