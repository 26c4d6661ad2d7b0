package extraction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-tracker/internal/domain/document"
	"github.com/FACorreiaa/statement-tracker/internal/domain/transaction"
	"github.com/FACorreiaa/statement-tracker/pkg/storage"
)

type fakeDocs struct {
	mu         sync.Mutex
	doc        *document.Document
	claimable  bool
	claimErr   error
	finalState document.Status
	finalMsg   *string
}

func (f *fakeDocs) GetByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.doc == nil {
		return nil, document.ErrNotFound
	}
	cp := *f.doc
	return &cp, nil
}

func (f *fakeDocs) ClaimForProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return false, f.claimErr
	}
	if f.claimable {
		f.doc.Status = document.StatusProcessing
	}
	return f.claimable, nil
}

func (f *fakeDocs) FinishProcessing(ctx context.Context, id uuid.UUID, status document.Status, errorMessage *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalState = status
	f.finalMsg = errorMessage
	f.doc.Status = status
	return nil
}

func (f *fakeDocs) SweepStuck(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 2, nil
}

func (f *fakeDocs) final() (document.Status, *string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finalState, f.finalMsg
}

type fakeTxs struct {
	mu         sync.Mutex
	replaced   []*transaction.Transaction
	replaceErr error
}

func (f *fakeTxs) ReplaceForDocument(ctx context.Context, documentID uuid.UUID, txs []*transaction.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.replaced = txs
	return nil
}

func (f *fakeTxs) stored() []*transaction.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.replaced
}

type fakeFiles struct {
	content string
	openErr error
}

func (f *fakeFiles) Save(ctx context.Context, originalName, contentType string, r io.Reader) (*storage.StoredFile, error) {
	return nil, errors.New("not used")
}

func (f *fakeFiles) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return io.NopCloser(strings.NewReader(f.content)), nil
}

func (f *fakeFiles) Delete(ctx context.Context, name string) error {
	return nil
}

func testDocument(status document.Status) *document.Document {
	return &document.Document{
		ID:       uuid.New(),
		Filename: "abc_statement.csv",
		MimeType: "text/csv",
		Status:   status,
	}
}

func newTestService(docs *fakeDocs, txs *fakeTxs, files *fakeFiles) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(docs, txs, files, Config{Workers: 1, QueueSize: 4}, logger)
}

const sampleCSV = `Date,Description,Amount
2025-01-05,POS STARBUCKS SEATTLE,-4.50
2025-01-06,ACME CORP PAYROLL,2500.00
`

func TestService_Process_Completes(t *testing.T) {
	docs := &fakeDocs{doc: testDocument(document.StatusProcessing), claimable: true}
	txs := &fakeTxs{}
	svc := newTestService(docs, txs, &fakeFiles{content: sampleCSV})

	require.NoError(t, svc.Process(context.Background(), docs.doc.ID))

	assert.Equal(t, document.StatusCompleted, docs.finalState)
	assert.Nil(t, docs.finalMsg)
	require.Len(t, txs.replaced, 2)

	first := txs.replaced[0]
	assert.True(t, first.Amount.Equal(decimal.RequireFromString("-4.50")))
	require.NotNil(t, first.Type)
	assert.Equal(t, transaction.TypeDebit, *first.Type)
	require.NotNil(t, first.VendorName)
	assert.Equal(t, "Starbucks", *first.VendorName)

	second := txs.replaced[1]
	require.NotNil(t, second.Type)
	assert.Equal(t, transaction.TypeCredit, *second.Type)
}

func TestService_Process_EmptyStatementCompletesEmpty(t *testing.T) {
	docs := &fakeDocs{doc: testDocument(document.StatusProcessing), claimable: true}
	txs := &fakeTxs{}
	svc := newTestService(docs, txs, &fakeFiles{content: "Date,Description,Amount\n"})

	require.NoError(t, svc.Process(context.Background(), docs.doc.ID))

	assert.Equal(t, document.StatusCompleted, docs.finalState)
	assert.Nil(t, docs.finalMsg)
	assert.Empty(t, txs.replaced)
}

func TestService_Process_FailsOnUnreadableFile(t *testing.T) {
	docs := &fakeDocs{doc: testDocument(document.StatusProcessing), claimable: true}
	svc := newTestService(docs, &fakeTxs{}, &fakeFiles{content: "no transactions here at all"})

	// Extraction failures mark the document failed but are not process errors.
	require.NoError(t, svc.Process(context.Background(), docs.doc.ID))
	assert.Equal(t, document.StatusFailed, docs.finalState)
	require.NotNil(t, docs.finalMsg)
}

func TestService_Process_RequiresClaim(t *testing.T) {
	docs := &fakeDocs{doc: testDocument(document.StatusPending), claimable: false}
	svc := newTestService(docs, &fakeTxs{}, &fakeFiles{content: sampleCSV})

	err := svc.Process(context.Background(), docs.doc.ID)
	assert.ErrorIs(t, err, ErrNotClaimable)
}

func TestService_Process_StoreFailureMarksFailed(t *testing.T) {
	docs := &fakeDocs{doc: testDocument(document.StatusProcessing), claimable: true}
	txs := &fakeTxs{replaceErr: errors.New("db down")}
	svc := newTestService(docs, txs, &fakeFiles{content: sampleCSV})

	err := svc.Process(context.Background(), docs.doc.ID)
	require.Error(t, err)
	assert.Equal(t, document.StatusFailed, docs.finalState)
}

func TestService_Enqueue(t *testing.T) {
	t.Run("unclaimable document", func(t *testing.T) {
		docs := &fakeDocs{doc: testDocument(document.StatusProcessing), claimable: false}
		svc := newTestService(docs, &fakeTxs{}, &fakeFiles{content: sampleCSV})

		err := svc.Enqueue(context.Background(), docs.doc.ID)
		assert.ErrorIs(t, err, ErrNotClaimable)
	})

	t.Run("queued and processed", func(t *testing.T) {
		docs := &fakeDocs{doc: testDocument(document.StatusPending), claimable: true}
		txs := &fakeTxs{}
		svc := newTestService(docs, txs, &fakeFiles{content: sampleCSV})
		svc.Start()
		defer svc.Stop()

		require.NoError(t, svc.Enqueue(context.Background(), docs.doc.ID))

		require.Eventually(t, func() bool {
			st, _ := docs.final()
			return st == document.StatusCompleted
		}, 2*time.Second, 10*time.Millisecond)
		assert.Len(t, txs.stored(), 2)
	})

	t.Run("full queue releases the claim", func(t *testing.T) {
		docs := &fakeDocs{doc: testDocument(document.StatusPending), claimable: true}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc := NewService(docs, &fakeTxs{}, &fakeFiles{content: sampleCSV}, Config{Workers: 1, QueueSize: 1}, logger)
		// Workers never started, so the queue fills up.
		require.NoError(t, svc.Enqueue(context.Background(), docs.doc.ID))

		err := svc.Enqueue(context.Background(), docs.doc.ID)
		assert.ErrorIs(t, err, ErrQueueFull)
		assert.Equal(t, document.StatusFailed, docs.finalState)
	})
}

func TestService_SweepStuck(t *testing.T) {
	docs := &fakeDocs{doc: testDocument(document.StatusProcessing)}
	svc := newTestService(docs, &fakeTxs{}, &fakeFiles{})

	n, err := svc.SweepStuck(context.Background(), 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
