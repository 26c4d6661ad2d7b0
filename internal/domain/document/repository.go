package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a document does not exist
var ErrNotFound = errors.New("document not found")

// PgxPool is the subset of pgxpool.Pool the repository needs. It is satisfied
// by *pgxpool.Pool and by pgxmock in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides PostgreSQL persistence for documents
type Repository struct {
	pool PgxPool
}

// NewRepository creates a new document repository
func NewRepository(pool PgxPool) *Repository {
	return &Repository{pool: pool}
}

const documentColumns = `id, filename, original_name, size_bytes, mime_type, status,
		error_message, uploaded_at, processing_started_at, processed_at`

// Create inserts a new document row
func (r *Repository) Create(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO documents (id, filename, original_name, size_bytes, mime_type, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING uploaded_at`

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = StatusPending
	}

	err := r.pool.QueryRow(ctx, query,
		doc.ID,
		doc.Filename,
		doc.OriginalName,
		doc.SizeBytes,
		doc.MimeType,
		doc.Status,
	).Scan(&doc.UploadedAt)

	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	doc := &Document{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.Filename,
		&doc.OriginalName,
		&doc.SizeBytes,
		&doc.MimeType,
		&doc.Status,
		&doc.ErrorMessage,
		&doc.UploadedAt,
		&doc.ProcessingStartedAt,
		&doc.ProcessedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// Exists reports whether a document row exists
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check document existence: %w", err)
	}
	return exists, nil
}

// List retrieves documents newest first along with the total count
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*Document, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	query := `SELECT ` + documentColumns + `
		FROM documents
		ORDER BY uploaded_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc := &Document{}
		err := rows.Scan(
			&doc.ID,
			&doc.Filename,
			&doc.OriginalName,
			&doc.SizeBytes,
			&doc.MimeType,
			&doc.Status,
			&doc.ErrorMessage,
			&doc.UploadedAt,
			&doc.ProcessingStartedAt,
			&doc.ProcessedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read documents: %w", err)
	}
	return docs, total, nil
}

// UpdateStatus sets the status and error message of a document
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, errorMessage *string) error {
	query := `UPDATE documents SET status = $2, error_message = $3 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, status, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimForProcessing atomically transitions a document to processing. Only
// pending and failed documents can be claimed; a concurrent claim on the same
// document observes zero rows and reports no claim.
func (r *Repository) ClaimForProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE documents
		SET status = 'processing', error_message = NULL, processing_started_at = now()
		WHERE id = $1 AND status IN ('pending', 'failed')`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim document: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// FinishProcessing records the terminal status of a processing run
func (r *Repository) FinishProcessing(ctx context.Context, id uuid.UUID, status Status, errorMessage *string) error {
	query := `
		UPDATE documents
		SET status = $2, error_message = $3, processed_at = now()
		WHERE id = $1 AND status = 'processing'`

	result, err := r.pool.Exec(ctx, query, id, status, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to finish processing: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SweepStuck marks documents stuck in processing beyond the deadline as failed
func (r *Repository) SweepStuck(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		UPDATE documents
		SET status = 'failed', error_message = 'processing timed out', processed_at = now()
		WHERE status = 'processing' AND processing_started_at < now() - $1::interval`

	interval := fmt.Sprintf("%d seconds", int(olderThan.Seconds()))
	result, err := r.pool.Exec(ctx, query, interval)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stuck documents: %w", err)
	}
	return result.RowsAffected(), nil
}

// Delete removes a document; transactions cascade at the database level
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
