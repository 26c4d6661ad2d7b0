// Package handler exposes the transaction API over HTTP.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-tracker/internal/domain/transaction"
	"github.com/FACorreiaa/statement-tracker/internal/server/respond"
)

const dateLayout = "2006-01-02"

// TransactionService is the transaction operations the handler depends on.
type TransactionService interface {
	Create(ctx context.Context, tx *transaction.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	Update(ctx context.Context, id uuid.UUID, updated *transaction.Transaction) (*transaction.Transaction, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, filter transaction.SearchFilter) (*transaction.SearchResult, error)
	Export(ctx context.Context, filter transaction.SearchFilter, format transaction.ExportFormat, w io.Writer) error
}

// Handler serves transaction endpoints.
type Handler struct {
	svc    TransactionService
	logger *slog.Logger
}

// NewHandler builds a transaction handler.
func NewHandler(svc TransactionService, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the transaction routes on the given group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/transactions", h.Create)
	g.GET("/transactions", h.List)
	g.GET("/transactions/search", h.Search)
	g.GET("/transactions/export", h.Export)
	g.GET("/transactions/:id", h.Get)
	g.PUT("/transactions/:id", h.Update)
	g.DELETE("/transactions/:id", h.Delete)
}

// transactionRequest is the write payload for create and update. Amount is a
// decimal string to avoid float rounding on the wire.
type transactionRequest struct {
	DocumentID    string  `json:"document_id" binding:"required"`
	Date          string  `json:"date" binding:"required"`
	Amount        string  `json:"amount" binding:"required"`
	Description   string  `json:"description" binding:"required"`
	AccountNumber *string `json:"account_number"`
	VendorName    *string `json:"vendor_name"`
	Type          *string `json:"type"`
}

func (r *transactionRequest) toTransaction() (*transaction.Transaction, error) {
	docID, err := uuid.Parse(r.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("document_id must be a UUID")
	}
	date, err := time.Parse(dateLayout, r.Date)
	if err != nil {
		return nil, fmt.Errorf("date must be formatted %s", dateLayout)
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount must be a decimal number")
	}

	tx := &transaction.Transaction{
		DocumentID:    docID,
		Date:          date,
		Amount:        amount,
		Description:   r.Description,
		AccountNumber: r.AccountNumber,
		VendorName:    r.VendorName,
	}
	if r.Type != nil {
		typ := transaction.Type(*r.Type)
		if !typ.Valid() {
			return nil, fmt.Errorf("type must be debit or credit")
		}
		tx.Type = &typ
	}
	return tx, nil
}

// Create inserts a manually entered transaction.
func (h *Handler) Create(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_body", err.Error(), nil)
		return
	}

	tx, err := req.toTransaction()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_body", err.Error(), nil)
		return
	}

	if err := h.svc.Create(c.Request.Context(), tx); err != nil {
		switch {
		case errors.Is(err, transaction.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		default:
			h.logger.Error("creating transaction failed", slog.Any("error", err))
			respond.Error(c, http.StatusInternalServerError, "internal", "Creating transaction failed", nil)
		}
		return
	}

	respond.Created(c, tx)
}

// List returns a filtered page of transactions. It shares filter parsing
// with Search; the two routes exist so that plain listing does not imply
// text search semantics to clients.
func (h *Handler) List(c *gin.Context) {
	h.Search(c)
}

// Search returns transactions matching the query parameters.
func (h *Handler) Search(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_filter", err.Error(), nil)
		return
	}

	result, err := h.svc.Search(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, transaction.ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "invalid_filter", err.Error(), nil)
			return
		}
		h.logger.Error("searching transactions failed", slog.Any("error", err))
		respond.Error(c, http.StatusInternalServerError, "internal", "Searching transactions failed", nil)
		return
	}

	respond.OK(c, result)
}

// Get returns one transaction by id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	tx, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Transaction not found", nil)
			return
		}
		h.logger.Error("fetching transaction failed", slog.Any("error", err))
		respond.Error(c, http.StatusInternalServerError, "internal", "Fetching transaction failed", nil)
		return
	}

	respond.OK(c, tx)
}

// Update replaces the mutable fields of a transaction.
func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_body", err.Error(), nil)
		return
	}

	tx, err := req.toTransaction()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_body", err.Error(), nil)
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), id, tx)
	if err != nil {
		switch {
		case errors.Is(err, transaction.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Transaction not found", nil)
		case errors.Is(err, transaction.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		default:
			h.logger.Error("updating transaction failed", slog.Any("error", err))
			respond.Error(c, http.StatusInternalServerError, "internal", "Updating transaction failed", nil)
		}
		return
	}

	respond.OK(c, updated)
}

// Delete removes one transaction.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Transaction not found", nil)
			return
		}
		h.logger.Error("deleting transaction failed", slog.Any("error", err))
		respond.Error(c, http.StatusInternalServerError, "internal", "Deleting transaction failed", nil)
		return
	}

	respond.NoContent(c)
}

// Export streams the filtered transactions as CSV or XLSX.
func (h *Handler) Export(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_filter", err.Error(), nil)
		return
	}

	format := transaction.ExportFormat(c.DefaultQuery("format", string(transaction.ExportCSV)))
	var contentType, filename string
	switch format {
	case transaction.ExportCSV:
		contentType = "text/csv"
		filename = "transactions.csv"
	case transaction.ExportXLSX:
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = "transactions.xlsx"
	default:
		respond.Error(c, http.StatusBadRequest, "invalid_format", "Format must be csv or xlsx", nil)
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	if err := h.svc.Export(c.Request.Context(), filter, format, c.Writer); err != nil {
		// Headers are already out; log and cut the stream.
		h.logger.Error("export failed", slog.Any("error", err))
	}
}

// parseFilter reads search predicates, sort and pagination from the query
// string.
func parseFilter(c *gin.Context) (transaction.SearchFilter, error) {
	var filter transaction.SearchFilter

	if raw := c.Query("document_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, fmt.Errorf("document_id must be a UUID")
		}
		filter.DocumentID = &id
	}
	if raw := c.Query("type"); raw != "" {
		typ := transaction.Type(raw)
		if !typ.Valid() {
			return filter, fmt.Errorf("type must be debit or credit")
		}
		filter.Type = &typ
	}
	if raw := c.Query("date_from"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, fmt.Errorf("date_from must be formatted %s", dateLayout)
		}
		filter.DateFrom = &t
	}
	if raw := c.Query("date_to"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, fmt.Errorf("date_to must be formatted %s", dateLayout)
		}
		filter.DateTo = &t
	}
	if raw := c.Query("amount_min"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, fmt.Errorf("amount_min must be a decimal number")
		}
		filter.AmountMin = &d
	}
	if raw := c.Query("amount_max"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, fmt.Errorf("amount_max must be a decimal number")
		}
		filter.AmountMax = &d
	}

	filter.Query = c.Query("q")
	filter.SortBy = c.Query("sort_by")
	filter.SortDir = c.Query("sort_dir")
	filter.Page = intQuery(c, "page", 1)
	filter.PageSize = intQuery(c, "page_size", 20)

	return filter, nil
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_id", "Path id must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
