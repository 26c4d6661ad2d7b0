package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidInput is returned when a create or update fails validation
var ErrInvalidInput = errors.New("invalid input")

// TransactionRepository is the persistence interface the service depends on
type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	Update(ctx context.Context, tx *Transaction) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, filter SearchFilter) (*SearchResult, error)
	ListForExport(ctx context.Context, filter SearchFilter, limit int) ([]*Transaction, error)
}

// DocumentChecker verifies the referenced document exists before a create
type DocumentChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service provides transaction CRUD and search operations
type Service struct {
	repo   TransactionRepository
	docs   DocumentChecker
	logger *slog.Logger
}

// NewService creates a new transaction service
func NewService(repo TransactionRepository, docs DocumentChecker, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		docs:   docs,
		logger: logger,
	}
}

// Create validates and inserts a manually entered transaction
func (s *Service) Create(ctx context.Context, tx *Transaction) error {
	if err := validate(tx); err != nil {
		return err
	}

	exists, err := s.docs.Exists(ctx, tx.DocumentID)
	if err != nil {
		return fmt.Errorf("failed to check document: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: document %s does not exist", ErrInvalidInput, tx.DocumentID)
	}

	return s.repo.Create(ctx, tx)
}

// Get retrieves a single transaction
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetByID(ctx, id)
}

// Update rewrites the editable fields of an existing transaction. The
// document association is immutable.
func (s *Service) Update(ctx context.Context, id uuid.UUID, updated *Transaction) (*Transaction, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated.ID = current.ID
	updated.DocumentID = current.DocumentID
	updated.CreatedAt = current.CreatedAt
	if err := validate(updated); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes exactly one transaction
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Search applies optional predicates, sort and pagination
func (s *Service) Search(ctx context.Context, filter SearchFilter) (*SearchResult, error) {
	if err := validateRanges(filter); err != nil {
		return nil, err
	}
	return s.repo.Search(ctx, filter)
}

func validateRanges(filter SearchFilter) error {
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return fmt.Errorf("%w: date_to before date_from", ErrInvalidInput)
	}
	if filter.AmountMin != nil && filter.AmountMax != nil && filter.AmountMax.LessThan(*filter.AmountMin) {
		return fmt.Errorf("%w: amount_max below amount_min", ErrInvalidInput)
	}
	return nil
}

func validate(tx *Transaction) error {
	tx.Description = strings.TrimSpace(tx.Description)
	if tx.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if tx.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	if tx.Type != nil && !tx.Type.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, *tx.Type)
	}
	if tx.VendorName != nil && strings.TrimSpace(*tx.VendorName) == "" {
		tx.VendorName = nil
	}
	if tx.AccountNumber != nil && strings.TrimSpace(*tx.AccountNumber) == "" {
		tx.AccountNumber = nil
	}
	return nil
}
