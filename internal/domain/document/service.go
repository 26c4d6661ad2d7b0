package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/statement-tracker/pkg/metrics"
	"github.com/FACorreiaa/statement-tracker/pkg/storage"
)

// ErrInvalidInput is returned when an upload or update fails validation
var ErrInvalidInput = errors.New("invalid input")

// ErrUnsupportedType is returned when an uploaded file type cannot be processed
var ErrUnsupportedType = errors.New("unsupported file type")

// DocumentRepository is the persistence interface the service depends on
type DocumentRepository interface {
	Create(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	List(ctx context.Context, limit, offset int) ([]*Document, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, errorMessage *string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service provides document upload and lifecycle operations
type Service struct {
	repo    DocumentRepository
	storage storage.Storage
	logger  *slog.Logger
}

// NewService creates a new document service
func NewService(repo DocumentRepository, store storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		storage: store,
		logger:  logger,
	}
}

// acceptedTypes maps supported extensions to canonical MIME types. Uploads
// whose browser-supplied content type disagrees fall back to the extension.
var acceptedTypes = map[string]string{
	".pdf":  "application/pdf",
	".csv":  "text/csv",
	".tsv":  "text/tab-separated-values",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Upload stores the file and inserts a pending document row
func (s *Service) Upload(ctx context.Context, originalName string, contentType string, r io.Reader) (*Document, error) {
	originalName = strings.TrimSpace(originalName)
	if originalName == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}

	mimeType, err := resolveMimeType(originalName, contentType)
	if err != nil {
		return nil, err
	}

	stored, err := s.storage.Save(ctx, originalName, mimeType, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	if stored.Size == 0 {
		if delErr := s.storage.Delete(ctx, stored.Name); delErr != nil {
			s.logger.Warn("failed to remove empty upload", "file", stored.Name, "error", delErr)
		}
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}

	doc := &Document{
		Filename:     stored.Name,
		OriginalName: originalName,
		SizeBytes:    stored.Size,
		MimeType:     mimeType,
		Status:       StatusPending,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		// Best effort: do not leave an orphaned file behind.
		if delErr := s.storage.Delete(ctx, stored.Name); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", "file", stored.Name, "error", delErr)
		}
		return nil, err
	}

	metrics.DocumentsUploaded.Inc()
	s.logger.Info("document uploaded",
		slog.String("document_id", doc.ID.String()),
		slog.String("original_name", doc.OriginalName),
		slog.Int64("size_bytes", doc.SizeBytes),
	)
	return doc, nil
}

// Get retrieves a single document
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves documents newest first
func (s *Service) List(ctx context.Context, page, pageSize int) ([]*Document, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.repo.List(ctx, pageSize, (page-1)*pageSize)
}

// UpdateStatus changes a document's status. The error message is only kept
// for failed documents.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, errorMessage *string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if status != StatusFailed {
		errorMessage = nil
	}
	return s.repo.UpdateStatus(ctx, id, status, errorMessage)
}

// Delete removes the document row (transactions cascade) and its stored file
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, doc.Filename); err != nil {
		s.logger.Warn("failed to delete stored file", "file", doc.Filename, "error", err)
	}
	return nil
}

func resolveMimeType(filename, contentType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	canonical, ok := acceptedTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	clean := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	for _, accepted := range acceptedTypes {
		if clean == accepted {
			return clean, nil
		}
	}
	// Browsers send generic or legacy types (octet-stream, zip,
	// vnd.ms-excel, text/plain); the extension decides the canonical type
	// the parser will see.
	return canonical, nil
}
