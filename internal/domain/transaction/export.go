package transaction

import (
	"context"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/statement-tracker/pkg/money"
)

// ExportFormat selects the export encoding
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// exportMaxRows caps a single export to keep memory bounded
const exportMaxRows = 10000

// exportRow is the flat record written to CSV exports
type exportRow struct {
	Date          string `csv:"date"`
	Description   string `csv:"description"`
	Amount        string `csv:"amount"`
	Type          string `csv:"type"`
	VendorName    string `csv:"vendor_name"`
	AccountNumber string `csv:"account_number"`
	DocumentID    string `csv:"document_id"`
}

// Export writes the full (unpaginated) result set of the filter to w in the
// requested format.
func (s *Service) Export(ctx context.Context, filter SearchFilter, format ExportFormat, w io.Writer) error {
	if err := validateRanges(filter); err != nil {
		return err
	}
	items, err := s.repo.ListForExport(ctx, filter, exportMaxRows)
	if err != nil {
		return err
	}

	switch format {
	case ExportCSV:
		return writeCSV(items, w)
	case ExportXLSX:
		return writeXLSX(items, w)
	default:
		return fmt.Errorf("%w: unknown export format %q", ErrInvalidInput, format)
	}
}

func writeCSV(items []*Transaction, w io.Writer) error {
	rows := make([]exportRow, 0, len(items))
	for _, tx := range items {
		rows = append(rows, exportRow{
			Date:          tx.Date.Format("2006-01-02"),
			Description:   tx.Description,
			Amount:        tx.Amount.StringFixed(2),
			Type:          derefType(tx.Type),
			VendorName:    deref(tx.VendorName),
			AccountNumber: deref(tx.AccountNumber),
			DocumentID:    tx.DocumentID.String(),
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write CSV export: %w", err)
	}
	return nil
}

func writeXLSX(items []*Transaction, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Transactions"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Date", "Description", "Amount", "Type", "Vendor", "Account", "Document ID"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for rowIdx, tx := range items {
		values := []any{
			tx.Date.Format("2006-01-02"),
			tx.Description,
			money.Format(tx.Amount, money.DefaultCurrency),
			derefType(tx.Type),
			deref(tx.VendorName),
			deref(tx.AccountNumber),
			tx.DocumentID.String(),
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", rowIdx+2, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write XLSX export: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefType(t *Type) string {
	if t == nil {
		return ""
	}
	return string(*t)
}
