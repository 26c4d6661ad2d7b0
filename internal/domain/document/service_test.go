package document

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-tracker/pkg/storage"
)

type mockRepo struct {
	docs      map[uuid.UUID]*Document
	createErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{docs: map[uuid.UUID]*Document{}}
}

func (m *mockRepo) Create(ctx context.Context, doc *Document) error {
	if m.createErr != nil {
		return m.createErr
	}
	doc.ID = uuid.New()
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (m *mockRepo) List(ctx context.Context, limit, offset int) ([]*Document, int, error) {
	var out []*Document
	for _, d := range m.docs {
		out = append(out, d)
	}
	return out, len(out), nil
}

func (m *mockRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, errorMessage *string) error {
	doc, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.Status = status
	doc.ErrorMessage = errorMessage
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

type mockStorage struct {
	files   map[string][]byte
	saveErr error
}

func newMockStorage() *mockStorage {
	return &mockStorage{files: map[string][]byte{}}
}

func (m *mockStorage) Save(ctx context.Context, originalName, contentType string, r io.Reader) (*storage.StoredFile, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	name := uuid.NewString()
	m.files[name] = data
	return &storage.StoredFile{Name: name, Size: int64(len(data)), ContentType: contentType}, nil
}

func (m *mockStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	data, ok := m.files[name]
	if !ok {
		return nil, errors.New("missing file")
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (m *mockStorage) Delete(ctx context.Context, name string) error {
	delete(m.files, name)
	return nil
}

func newTestService() (*Service, *mockRepo, *mockStorage) {
	repo := newMockRepo()
	store := newMockStorage()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, store, logger), repo, store
}

func TestService_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts csv", func(t *testing.T) {
		svc, repo, store := newTestService()

		doc, err := svc.Upload(ctx, "statement.csv", "text/csv", strings.NewReader("Date,Description,Amount\n"))
		require.NoError(t, err)
		assert.Equal(t, StatusPending, doc.Status)
		assert.Equal(t, "statement.csv", doc.OriginalName)
		assert.Equal(t, "text/csv", doc.MimeType)
		assert.NotZero(t, doc.SizeBytes)
		assert.Contains(t, repo.docs, doc.ID)
		assert.Len(t, store.files, 1)
	})

	t.Run("resolves mime from extension when generic", func(t *testing.T) {
		svc, _, _ := newTestService()

		doc, err := svc.Upload(ctx, "statement.xlsx", "application/octet-stream", strings.NewReader("PK\x03\x04"))
		require.NoError(t, err)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", doc.MimeType)
	})

	t.Run("resolves mime from extension when unrecognized", func(t *testing.T) {
		svc, _, _ := newTestService()

		doc, err := svc.Upload(ctx, "statement.xlsx", "application/vnd.ms-excel", strings.NewReader("PK\x03\x04"))
		require.NoError(t, err)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", doc.MimeType)
	})

	t.Run("keeps supplied mime when accepted", func(t *testing.T) {
		svc, _, _ := newTestService()

		doc, err := svc.Upload(ctx, "statement.csv", "text/csv; charset=utf-8", strings.NewReader("data"))
		require.NoError(t, err)
		assert.Equal(t, "text/csv", doc.MimeType)
	})

	t.Run("rejects unsupported extension", func(t *testing.T) {
		svc, _, store := newTestService()

		_, err := svc.Upload(ctx, "statement.exe", "application/octet-stream", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrUnsupportedType)
		assert.Empty(t, store.files)
	})

	t.Run("rejects empty filename", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.Upload(ctx, "  ", "text/csv", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects empty file and removes it", func(t *testing.T) {
		svc, _, store := newTestService()

		_, err := svc.Upload(ctx, "statement.csv", "text/csv", strings.NewReader(""))
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Empty(t, store.files)
	})

	t.Run("removes file when insert fails", func(t *testing.T) {
		svc, repo, store := newTestService()
		repo.createErr = errors.New("db down")

		_, err := svc.Upload(ctx, "statement.csv", "text/csv", strings.NewReader("data"))
		require.Error(t, err)
		assert.Empty(t, store.files)
	})
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()

	doc, err := svc.Upload(ctx, "s.csv", "text/csv", strings.NewReader("data"))
	require.NoError(t, err)

	t.Run("rejects unknown status", func(t *testing.T) {
		err := svc.UpdateStatus(ctx, doc.ID, Status("bogus"), nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("drops error message for non failed status", func(t *testing.T) {
		msg := "should vanish"
		require.NoError(t, svc.UpdateStatus(ctx, doc.ID, StatusCompleted, &msg))
		assert.Nil(t, repo.docs[doc.ID].ErrorMessage)
	})

	t.Run("keeps error message for failed status", func(t *testing.T) {
		msg := "parse exploded"
		require.NoError(t, svc.UpdateStatus(ctx, doc.ID, StatusFailed, &msg))
		require.NotNil(t, repo.docs[doc.ID].ErrorMessage)
		assert.Equal(t, "parse exploded", *repo.docs[doc.ID].ErrorMessage)
	})

	t.Run("missing document", func(t *testing.T) {
		err := svc.UpdateStatus(ctx, uuid.New(), StatusCompleted, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, repo, store := newTestService()

	doc, err := svc.Upload(ctx, "s.csv", "text/csv", strings.NewReader("data"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, doc.ID))
	assert.Empty(t, repo.docs)
	assert.Empty(t, store.files)

	assert.ErrorIs(t, svc.Delete(ctx, doc.ID), ErrNotFound)
}

func TestService_ListClampsPaging(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	_, _, err := svc.List(ctx, -5, 10000)
	assert.NoError(t, err)
}
