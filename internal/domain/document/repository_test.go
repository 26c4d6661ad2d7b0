package document

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestRepository_Create(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRepository(mock)

	uploadedAt := time.Now()
	mock.ExpectQuery(`INSERT INTO documents`).
		WithArgs(pgxmock.AnyArg(), "abc-file.csv", "file.csv", int64(42), "text/csv", StatusPending).
		WillReturnRows(pgxmock.NewRows([]string{"uploaded_at"}).AddRow(uploadedAt))

	doc := &Document{
		Filename:     "abc-file.csv",
		OriginalName: "file.csv",
		SizeBytes:    42,
		MimeType:     "text/csv",
	}
	require.NoError(t, repo.Create(context.Background(), doc))
	assert.NotEqual(t, uuid.Nil, doc.ID)
	assert.Equal(t, StatusPending, doc.Status)
	assert.Equal(t, uploadedAt, doc.UploadedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRepository(mock)

	id := uuid.New()
	mock.ExpectQuery(`(?s)SELECT .+ FROM documents WHERE id`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ClaimForProcessing(t *testing.T) {
	t.Run("claims pending document", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewRepository(mock)

		id := uuid.New()
		mock.ExpectExec(`UPDATE documents`).
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		claimed, err := repo.ClaimForProcessing(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent claim loses", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewRepository(mock)

		id := uuid.New()
		mock.ExpectExec(`UPDATE documents`).
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		claimed, err := repo.ClaimForProcessing(context.Background(), id)
		require.NoError(t, err)
		assert.False(t, claimed)
	})

	t.Run("propagates database error", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewRepository(mock)

		id := uuid.New()
		mock.ExpectExec(`UPDATE documents`).
			WithArgs(id).
			WillReturnError(errors.New("connection refused"))

		_, err := repo.ClaimForProcessing(context.Background(), id)
		assert.Error(t, err)
	})
}

func TestRepository_FinishProcessing(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRepository(mock)

	id := uuid.New()
	mock.ExpectExec(`UPDATE documents`).
		WithArgs(id, StatusCompleted, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.FinishProcessing(context.Background(), id, StatusCompleted, nil))

	// Finishing a document nothing claimed reports not found.
	mock.ExpectExec(`UPDATE documents`).
		WithArgs(id, StatusCompleted, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.FinishProcessing(context.Background(), id, StatusCompleted, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SweepStuck(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRepository(mock)

	mock.ExpectExec(`UPDATE documents`).
		WithArgs("900 seconds").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := repo.SweepStuck(context.Background(), 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_List(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRepository(mock)

	now := time.Now()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM documents`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`(?s)SELECT .+ FROM documents.+ORDER BY uploaded_at DESC`).
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "filename", "original_name", "size_bytes", "mime_type", "status",
			"error_message", "uploaded_at", "processing_started_at", "processed_at",
		}).AddRow(uuid.New(), "f1", "a.csv", int64(10), "text/csv", StatusCompleted, nil, now, nil, nil))

	docs, total, err := repo.List(context.Background(), 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.csv", docs[0].OriginalName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Delete(t *testing.T) {
	mock := newMockPool(t)
	repo := NewRepository(mock)

	id := uuid.New()
	mock.ExpectExec(`DELETE FROM documents`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrNotFound)
}
