package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/statement-tracker/internal/domain/extraction/normalizer"
)

// parseXLSX reads the first transaction-looking sheet and feeds its rows
// through the shared row pipeline
func (p *Parser) parseXLSX(data []byte) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	sheet := findTransactionSheet(f)
	if sheet == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnreadable)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	headerIdx := -1
	var cols columnMap
	for i, row := range rows {
		cols = suggestColumns(row)
		if cols.valid() {
			headerIdx = i
			break
		}
		if i >= sniffMaxLines {
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("%w: could not identify date/description/amount columns", ErrUnreadable)
	}

	var preamble strings.Builder
	for _, row := range rows[:headerIdx] {
		preamble.WriteString(strings.Join(row, " "))
		preamble.WriteByte('\n')
	}

	dataRows := rows[headerIdx+1:]
	sampleEnd := len(dataRows)
	if sampleEnd > 5 {
		sampleEnd = 5
	}
	samples := dataRows[:sampleEnd]

	dateFormat := normalizer.DetectDateFormat(collectColumn(samples, cols.Date))
	european, ok := normalizer.DetectEuropeanFormat(collectAmounts(samples, cols))
	if !ok {
		european = false
	}

	result := &Result{
		AccountNumber: normalizer.DetectAccountNumber(preamble.String()),
	}

	for i, row := range dataRows {
		lineNum := headerIdx + i + 2 // 1-indexed sheet row
		if isBlankRecord(row) {
			continue
		}
		line, err := mapRecord(row, cols, dateFormat, european)
		if err != nil {
			result.Errors = append(result.Errors, LineError{Line: lineNum, Message: err.Error()})
			continue
		}
		result.Lines = append(result.Lines, *line)
	}

	return result, nil
}

// findTransactionSheet prefers a sheet named like "transactions", falling
// back to the first sheet
func findTransactionSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}
	for _, name := range sheets {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "transaction") || strings.Contains(lower, "movimentos") ||
			strings.Contains(lower, "statement") {
			return name
		}
	}
	return sheets[0]
}
