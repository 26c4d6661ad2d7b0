// Package extraction turns uploaded statement documents into transactions.
// It coordinates the parser, the normalizer and the vendor engine, and owns
// the worker pool that runs document processing off the request path.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/statement-tracker/internal/domain/document"
	"github.com/FACorreiaa/statement-tracker/internal/domain/extraction/parser"
	"github.com/FACorreiaa/statement-tracker/internal/domain/extraction/vendor"
	"github.com/FACorreiaa/statement-tracker/internal/domain/transaction"
	"github.com/FACorreiaa/statement-tracker/pkg/metrics"
	"github.com/FACorreiaa/statement-tracker/pkg/storage"
)

var (
	// ErrNotClaimable is returned when a document is already being processed
	// or does not exist.
	ErrNotClaimable = errors.New("document cannot be claimed for processing")

	// ErrQueueFull is returned when the processing queue has no capacity.
	ErrQueueFull = errors.New("processing queue is full")
)

var tracer = otel.Tracer("extraction")

// DocumentStore is the slice of the document repository the extractor needs.
type DocumentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*document.Document, error)
	ClaimForProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	FinishProcessing(ctx context.Context, id uuid.UUID, status document.Status, errorMessage *string) error
	SweepStuck(ctx context.Context, olderThan time.Duration) (int64, error)
}

// TransactionStore persists extracted transactions.
type TransactionStore interface {
	ReplaceForDocument(ctx context.Context, documentID uuid.UUID, txs []*transaction.Transaction) error
}

// Config controls the worker pool.
type Config struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// Service extracts transactions from documents and manages async processing.
type Service struct {
	docs    DocumentStore
	txs     TransactionStore
	files   storage.Storage
	parser  *parser.Parser
	vendors *vendor.Engine
	logger  *slog.Logger
	cfg     Config

	queue chan uuid.UUID
	wg    sync.WaitGroup
	stop  chan struct{}
	once  sync.Once
}

// NewService builds an extraction service. Start must be called before
// Enqueue will make progress.
func NewService(docs DocumentStore, txs TransactionStore, files storage.Storage, cfg Config, logger *slog.Logger) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = 2 * time.Minute
	}
	return &Service{
		docs:    docs,
		txs:     txs,
		files:   files,
		parser:  parser.New(),
		vendors: vendor.NewEngine(nil),
		logger:  logger,
		cfg:     cfg,
		queue:   make(chan uuid.UUID, cfg.QueueSize),
		stop:    make(chan struct{}),
	}
}

// Start launches the worker pool.
func (s *Service) Start() {
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	s.logger.Info("extraction workers started", slog.Int("workers", s.cfg.Workers))
}

// Stop drains the pool. Queued documents that never started stay in
// processing status until the stuck sweep fails them, after which they can
// be triggered again.
func (s *Service) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *Service) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			return
		case docID := <-s.queue:
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ProcessTimeout)
			if err := s.Process(ctx, docID); err != nil && !errors.Is(err, ErrNotClaimable) {
				s.logger.Error("document processing failed",
					slog.String("document_id", docID.String()),
					slog.Int("worker", id),
					slog.Any("error", err))
			}
			cancel()
		}
	}
}

// Enqueue claims the document and hands it to the worker pool. It returns
// ErrNotClaimable when the document is missing or already processing, so a
// double trigger is a no-op for the caller to report.
func (s *Service) Enqueue(ctx context.Context, docID uuid.UUID) error {
	claimed, err := s.docs.ClaimForProcessing(ctx, docID)
	if err != nil {
		return fmt.Errorf("claiming document: %w", err)
	}
	if !claimed {
		return ErrNotClaimable
	}
	select {
	case s.queue <- docID:
		return nil
	default:
		// Roll the claim back so the sweep does not have to.
		msg := "processing queue full"
		if ferr := s.docs.FinishProcessing(ctx, docID, document.StatusFailed, &msg); ferr != nil {
			s.logger.Error("releasing claim after full queue", slog.Any("error", ferr))
		}
		return ErrQueueFull
	}
}

// Process runs extraction for an already claimed document. The document must
// be in processing status when this is called from the pool; the method also
// verifies the claim itself so it can be invoked directly in tests.
func (s *Service) Process(ctx context.Context, docID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "extraction.Process",
		trace.WithAttributes(attribute.String("document.id", docID.String())))
	defer span.End()

	start := time.Now()

	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return fmt.Errorf("loading document: %w", err)
	}
	if doc.Status != document.StatusProcessing {
		return ErrNotClaimable
	}

	txs, extractErr := s.extract(ctx, doc)

	duration := time.Since(start)
	metrics.ProcessingDuration.Observe(duration.Seconds())

	if extractErr != nil {
		msg := extractErr.Error()
		if err := s.docs.FinishProcessing(ctx, docID, document.StatusFailed, &msg); err != nil {
			return fmt.Errorf("marking document failed: %w", err)
		}
		metrics.DocumentsProcessed.WithLabelValues(string(document.StatusFailed)).Inc()
		s.logger.Warn("extraction failed",
			slog.String("document_id", docID.String()),
			slog.String("error", msg))
		return nil
	}

	if err := s.txs.ReplaceForDocument(ctx, docID, txs); err != nil {
		msg := "storing extracted transactions failed"
		if ferr := s.docs.FinishProcessing(ctx, docID, document.StatusFailed, &msg); ferr != nil {
			s.logger.Error("marking document failed", slog.Any("error", ferr))
		}
		metrics.DocumentsProcessed.WithLabelValues(string(document.StatusFailed)).Inc()
		return fmt.Errorf("replacing transactions: %w", err)
	}

	if err := s.docs.FinishProcessing(ctx, docID, document.StatusCompleted, nil); err != nil {
		return fmt.Errorf("marking document completed: %w", err)
	}

	metrics.DocumentsProcessed.WithLabelValues(string(document.StatusCompleted)).Inc()
	metrics.TransactionsExtracted.Add(float64(len(txs)))
	s.logger.Info("document processed",
		slog.String("document_id", docID.String()),
		slog.Int("transactions", len(txs)),
		slog.Duration("duration", duration))
	return nil
}

// extract parses the stored file and converts parsed lines into transactions.
func (s *Service) extract(ctx context.Context, doc *document.Document) ([]*transaction.Transaction, error) {
	ctx, span := tracer.Start(ctx, "extraction.extract")
	defer span.End()

	rc, err := s.files.Open(ctx, doc.Filename)
	if err != nil {
		return nil, fmt.Errorf("opening stored file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading stored file: %w", err)
	}

	result, err := s.parser.Parse(data, doc.MimeType)
	if err != nil {
		return nil, err
	}
	if len(result.Lines) == 0 {
		if len(result.Errors) > 0 {
			return nil, fmt.Errorf("no transactions recognized (%d unparseable lines, first: %s)",
				len(result.Errors), result.Errors[0])
		}
		// A readable statement with no transaction rows completes with an
		// empty set rather than failing.
		return nil, nil
	}
	for _, le := range result.Errors {
		s.logger.Debug("skipped unparseable line",
			slog.String("document_id", doc.ID.String()),
			slog.String("line", le.String()))
	}

	txs := make([]*transaction.Transaction, 0, len(result.Lines))
	for _, line := range result.Lines {
		txs = append(txs, s.toTransaction(doc.ID, line, result.AccountNumber))
	}
	return txs, nil
}

// toTransaction enriches one parsed line with vendor and type information.
func (s *Service) toTransaction(docID uuid.UUID, line parser.Line, account *string) *transaction.Transaction {
	tx := &transaction.Transaction{
		ID:            uuid.New(),
		DocumentID:    docID,
		Date:          line.Date,
		Amount:        line.Amount,
		Description:   line.Description,
		AccountNumber: account,
	}

	match := s.vendors.Resolve(line.Description)
	if match.VendorName != "" {
		name := match.VendorName
		tx.VendorName = &name
	}

	// Sign is authoritative for type; the vendor hint only breaks the tie
	// for zero or ambiguous amounts.
	var typ transaction.Type
	switch {
	case line.Amount.IsNegative():
		typ = transaction.TypeDebit
	case line.Amount.IsPositive():
		typ = transaction.TypeCredit
	case match.Hint == vendor.HintCredit:
		typ = transaction.TypeCredit
	default:
		typ = transaction.TypeDebit
	}
	tx.Type = &typ

	return tx
}

// SweepStuck fails documents that have sat in processing status longer than
// olderThan. Failed documents are claimable again, so a later trigger can
// retry them. It is wired to the scheduler.
func (s *Service) SweepStuck(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.docs.SweepStuck(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("sweeping stuck documents: %w", err)
	}
	if n > 0 {
		s.logger.Warn("failed stuck documents", slog.Int64("count", n))
	}
	return n, nil
}
