package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a transaction does not exist
var ErrNotFound = errors.New("transaction not found")

// PgxPool is the subset of pgxpool.Pool the repository needs. It is satisfied
// by *pgxpool.Pool and by pgxmock in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository provides PostgreSQL persistence for transactions
type Repository struct {
	pool PgxPool
}

// NewRepository creates a new transaction repository
func NewRepository(pool PgxPool) *Repository {
	return &Repository{pool: pool}
}

// Amounts are NUMERIC in the schema. They cross the wire as text so that
// shopspring/decimal handles them without a pgx codec registration.
const transactionColumns = `id, document_id, date, amount::text, description,
		account_number, vendor_name, type, created_at`

// sortColumns whitelists sortable fields against SQL injection
var sortColumns = map[string]string{
	"date":        "date",
	"amount":      "amount",
	"description": "description",
	"vendor_name": "vendor_name",
	"created_at":  "created_at",
}

// Create inserts a new transaction row
func (r *Repository) Create(ctx context.Context, tx *Transaction) error {
	query := `
		INSERT INTO transactions (id, document_id, date, amount, description, account_number, vendor_name, type)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)
		RETURNING created_at`

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		tx.ID,
		tx.DocumentID,
		tx.Date,
		tx.Amount.String(),
		tx.Description,
		tx.AccountNumber,
		tx.VendorName,
		tx.Type,
	).Scan(&tx.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// Update rewrites the editable fields of a transaction
func (r *Repository) Update(ctx context.Context, tx *Transaction) error {
	query := `
		UPDATE transactions
		SET date = $2, amount = $3::numeric, description = $4,
			account_number = $5, vendor_name = $6, type = $7
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		tx.ID,
		tx.Date,
		tx.Amount.String(),
		tx.Description,
		tx.AccountNumber,
		tx.VendorName,
		tx.Type,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes exactly one transaction row
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Search applies the filter's predicates, sort and pagination and returns the
// matching page plus the unpaginated total.
func (r *Repository) Search(ctx context.Context, filter SearchFilter) (*SearchResult, error) {
	where, args := buildWhere(filter)

	countQuery := `SELECT COUNT(*) FROM transactions` + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 25
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions` + where +
		orderClause(filter.SortBy, filter.SortDir) +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search transactions: %w", err)
	}
	defer rows.Close()

	items := make([]*Transaction, 0, pageSize)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		items = append(items, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}

	return &SearchResult{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// ListForExport returns every row matching the filter in the filter's sort
// order, capped at limit. Exports go through here instead of Search so the
// page-size clamp never truncates the result set.
func (r *Repository) ListForExport(ctx context.Context, filter SearchFilter, limit int) ([]*Transaction, error) {
	where, args := buildWhere(filter)
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where +
		orderClause(filter.SortBy, filter.SortDir) +
		fmt.Sprintf(` LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for export: %w", err)
	}
	defer rows.Close()

	var items []*Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		items = append(items, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return items, nil
}

// ReplaceForDocument atomically swaps a document's transactions for the given
// set. A re-process never leaves a partial mix of old and new rows.
func (r *Repository) ReplaceForDocument(ctx context.Context, documentID uuid.UUID, txs []*Transaction) error {
	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	if _, err := dbTx.Exec(ctx, `DELETE FROM transactions WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to clear document transactions: %w", err)
	}

	if len(txs) > 0 {
		batch := &pgx.Batch{}
		insert := `
			INSERT INTO transactions (id, document_id, date, amount, description, account_number, vendor_name, type)
			VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)`
		for _, tx := range txs {
			if tx.ID == uuid.Nil {
				tx.ID = uuid.New()
			}
			tx.DocumentID = documentID
			batch.Queue(insert,
				tx.ID, tx.DocumentID, tx.Date, tx.Amount.String(),
				tx.Description, tx.AccountNumber, tx.VendorName, tx.Type,
			)
		}

		results := dbTx.SendBatch(ctx, batch)
		for range txs {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to insert transaction: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to close batch: %w", err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transactions: %w", err)
	}
	return nil
}

func buildWhere(filter SearchFilter) (string, []any) {
	var conds []string
	var args []any
	argIdx := 1

	add := func(cond string, value any) {
		conds = append(conds, fmt.Sprintf(cond, argIdx))
		args = append(args, value)
		argIdx++
	}

	if filter.DocumentID != nil {
		add(`document_id = $%d`, *filter.DocumentID)
	}
	if filter.Type != nil {
		add(`type = $%d`, *filter.Type)
	}
	if filter.DateFrom != nil {
		add(`date >= $%d`, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add(`date <= $%d`, *filter.DateTo)
	}
	if filter.AmountMin != nil {
		add(`amount >= $%d::numeric`, filter.AmountMin.String())
	}
	if filter.AmountMax != nil {
		add(`amount <= $%d::numeric`, filter.AmountMax.String())
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		conds = append(conds, fmt.Sprintf(
			`(description ILIKE $%d OR vendor_name ILIKE $%d OR account_number ILIKE $%d)`,
			argIdx, argIdx, argIdx))
		args = append(args, pattern)
		argIdx++
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(sortBy, sortDir string) string {
	col, ok := sortColumns[sortBy]
	if !ok {
		col = "date"
	}
	dir := "DESC"
	if strings.EqualFold(sortDir, "asc") {
		dir = "ASC"
	}
	// Secondary key keeps pagination stable across identical values.
	return fmt.Sprintf(` ORDER BY %s %s, id ASC`, col, dir)
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	tx := &Transaction{}
	var amount string
	err := row.Scan(
		&tx.ID,
		&tx.DocumentID,
		&tx.Date,
		&amount,
		&tx.Description,
		&tx.AccountNumber,
		&tx.VendorName,
		&tx.Type,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return tx, nil
}
