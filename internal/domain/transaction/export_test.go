package transaction

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func exportFixture() []*Transaction {
	typ := TypeDebit
	vendor := "Starbucks"
	return []*Transaction{
		{
			ID:          uuid.New(),
			DocumentID:  uuid.New(),
			Date:        time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
			Amount:      decimal.RequireFromString("-4.5"),
			Description: "POS STARBUCKS",
			VendorName:  &vendor,
			Type:        &typ,
		},
	}
}

func TestService_Export_CSV(t *testing.T) {
	svc, repo := newTestService(true)
	repo.exportItems = exportFixture()

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), SearchFilter{}, ExportCSV, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "date")
	assert.Contains(t, lines[0], "vendor_name")
	assert.Contains(t, lines[1], "2025-01-05")
	assert.Contains(t, lines[1], "-4.50")
	assert.Contains(t, lines[1], "Starbucks")
}

func TestService_Export_XLSX(t *testing.T) {
	svc, repo := newTestService(true)
	repo.exportItems = exportFixture()

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), SearchFilter{}, ExportXLSX, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Transactions")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, "2025-01-05", rows[1][0])
	assert.Equal(t, "POS STARBUCKS", rows[1][1])
}

func TestService_Export_NotTruncatedByPageSize(t *testing.T) {
	svc, repo := newTestService(true)
	typ := TypeDebit
	for i := 0; i < 60; i++ {
		repo.exportItems = append(repo.exportItems, &Transaction{
			ID:          uuid.New(),
			DocumentID:  uuid.New(),
			Date:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Amount:      decimal.RequireFromString("-1.00"),
			Description: "ROW",
			Type:        &typ,
		})
	}

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), SearchFilter{}, ExportCSV, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 61)
}

func TestService_Export_UnknownFormat(t *testing.T) {
	svc, _ := newTestService(true)

	var buf bytes.Buffer
	err := svc.Export(context.Background(), SearchFilter{}, ExportFormat("pdf"), &buf)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
