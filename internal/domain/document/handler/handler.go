// Package handler exposes the document API over HTTP.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/FACorreiaa/statement-tracker/internal/domain/document"
	"github.com/FACorreiaa/statement-tracker/internal/domain/extraction"
	"github.com/FACorreiaa/statement-tracker/internal/server/respond"
)

// DocumentService is the document operations the handler depends on.
type DocumentService interface {
	Upload(ctx context.Context, originalName string, contentType string, r io.Reader) (*document.Document, error)
	Get(ctx context.Context, id uuid.UUID) (*document.Document, error)
	List(ctx context.Context, page, pageSize int) ([]*document.Document, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status document.Status, errorMessage *string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Processor triggers asynchronous document extraction.
type Processor interface {
	Enqueue(ctx context.Context, docID uuid.UUID) error
}

// Handler serves document endpoints.
type Handler struct {
	svc       DocumentService
	processor Processor
	logger    *slog.Logger
}

// NewHandler builds a document handler.
func NewHandler(svc DocumentService, processor Processor, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, processor: processor, logger: logger}
}

// Register mounts the document routes on the given group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/documents", h.Upload)
	g.GET("/documents", h.List)
	g.GET("/documents/:id", h.Get)
	g.PATCH("/documents/:id/status", h.UpdateStatus)
	g.DELETE("/documents/:id", h.Delete)
	g.POST("/documents/:id/process", h.Process)
}

type listResponse struct {
	Items    []*document.Document `json:"items"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

type updateStatusRequest struct {
	Status       string  `json:"status" binding:"required"`
	ErrorMessage *string `json:"error_message"`
}

// Upload accepts a multipart file under the "file" field, stores it and
// creates a pending document.
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "missing_file", "Multipart field 'file' is required", nil)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "unreadable_file", "Could not read uploaded file", nil)
		return
	}
	defer f.Close()

	doc, err := h.svc.Upload(c.Request.Context(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), f)
	if err != nil {
		switch {
		case errors.Is(err, document.ErrUnsupportedType):
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_type", "File type is not supported", nil)
		case errors.Is(err, document.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		default:
			h.logger.Error("upload failed", slog.Any("error", err))
			respond.Error(c, http.StatusInternalServerError, "internal", "Upload failed", nil)
		}
		return
	}

	respond.Created(c, doc)
}

// List returns a page of documents, newest first.
func (h *Handler) List(c *gin.Context) {
	page := intQuery(c, "page", 1)
	pageSize := intQuery(c, "page_size", 20)

	docs, total, err := h.svc.List(c.Request.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("listing documents failed", slog.Any("error", err))
		respond.Error(c, http.StatusInternalServerError, "internal", "Listing documents failed", nil)
		return
	}

	respond.OK(c, listResponse{Items: docs, Total: total, Page: page, PageSize: pageSize})
}

// Get returns one document by id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	doc, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Document not found", nil)
			return
		}
		h.logger.Error("fetching document failed", slog.Any("error", err))
		respond.Error(c, http.StatusInternalServerError, "internal", "Fetching document failed", nil)
		return
	}

	respond.OK(c, doc)
}

// UpdateStatus sets a document's status directly. Error message is only
// retained for failed status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_body", "Body must include a status field", nil)
		return
	}

	status := document.Status(req.Status)
	if !status.Valid() {
		respond.Error(c, http.StatusBadRequest, "invalid_status", "Status must be pending, processing, completed or failed", nil)
		return
	}

	if err := h.svc.UpdateStatus(c.Request.Context(), id, status, req.ErrorMessage); err != nil {
		if errors.Is(err, document.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Document not found", nil)
			return
		}
		h.logger.Error("updating document status failed", slog.Any("error", err))
		respond.Error(c, http.StatusInternalServerError, "internal", "Updating status failed", nil)
		return
	}

	respond.NoContent(c)
}

// Delete removes a document, its stored file and, via cascade, its
// transactions.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, document.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Document not found", nil)
			return
		}
		h.logger.Error("deleting document failed", slog.Any("error", err))
		respond.Error(c, http.StatusInternalServerError, "internal", "Deleting document failed", nil)
		return
	}

	respond.NoContent(c)
}

// Process queues the document for extraction. Returns 409 when the document
// is already being processed and 503 when the queue is full.
func (h *Handler) Process(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	err := h.processor.Enqueue(c.Request.Context(), id)
	switch {
	case err == nil:
		respond.JSON(c, http.StatusAccepted, gin.H{"status": string(document.StatusProcessing)})
	case errors.Is(err, extraction.ErrNotClaimable):
		respond.Error(c, http.StatusConflict, "not_claimable", "Document is missing or already being processed", nil)
	case errors.Is(err, extraction.ErrQueueFull):
		respond.Error(c, http.StatusServiceUnavailable, "queue_full", "Processing queue is full, retry later", nil)
	default:
		h.logger.Error("queueing document failed", slog.Any("error", err))
		respond.Error(c, http.StatusInternalServerError, "internal", "Queueing document failed", nil)
	}
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
