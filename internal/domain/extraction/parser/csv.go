package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-tracker/internal/domain/extraction/normalizer"
)

// parseCSV sniffs the dialect and maps rows through the shared row pipeline
func (p *Parser) parseCSV(data []byte) (*Result, error) {
	data = normalizeBytes(data)

	cfg, err := detectConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	cols := suggestColumns(cfg.Headers)
	if !cols.valid() {
		return nil, fmt.Errorf("%w: could not identify date/description/amount columns", ErrUnreadable)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = cfg.Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	// Skip past the header row.
	for i := 0; i <= cfg.SkipLines; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
	}

	result := &Result{
		AccountNumber: normalizer.DetectAccountNumber(cfg.Preamble),
	}

	dateFormat := normalizer.DetectDateFormat(collectColumn(cfg.SampleRows, cols.Date))
	european, ok := normalizer.DetectEuropeanFormat(collectAmounts(cfg.SampleRows, cols))
	if !ok {
		// Semicolon-delimited exports are overwhelmingly European.
		european = cfg.Delimiter == ';'
	}

	lineNum := cfg.SkipLines + 2 // 1-indexed, first data row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, LineError{Line: lineNum, Message: err.Error()})
			lineNum++
			continue
		}

		if isBlankRecord(record) {
			lineNum++
			continue
		}

		line, err := mapRecord(record, cols, dateFormat, european)
		if err != nil {
			result.Errors = append(result.Errors, LineError{Line: lineNum, Message: err.Error()})
		} else {
			result.Lines = append(result.Lines, *line)
		}
		lineNum++
	}

	return result, nil
}

// mapRecord converts one data row into a Line using the column map. It is
// shared between the CSV and XLSX paths.
func mapRecord(record []string, cols columnMap, dateFormat string, european bool) (*Line, error) {
	maxCol := len(record) - 1
	if cols.Date > maxCol || cols.Description > maxCol {
		return nil, fmt.Errorf("row has %d columns, need date and description", len(record))
	}

	date, err := normalizer.ParseDate(record[cols.Date], dateFormat)
	if err != nil {
		return nil, err
	}

	description := normalizer.CleanDescription(record[cols.Description])
	if description == "" {
		return nil, fmt.Errorf("empty description")
	}

	var amount decimal.Decimal
	if cols.IsDoubleEntry {
		amount, err = parseDoubleEntry(record, cols, european)
	} else {
		if cols.Amount > maxCol {
			return nil, fmt.Errorf("missing amount column")
		}
		amount, err = normalizer.ParseAmount(record[cols.Amount], european)
	}
	if err != nil {
		return nil, err
	}

	return &Line{Date: date, Amount: amount, Description: description}, nil
}

// parseDoubleEntry folds separate debit/credit columns into one signed amount
func parseDoubleEntry(record []string, cols columnMap, european bool) (decimal.Decimal, error) {
	debit := fieldAt(record, cols.Debit)
	credit := fieldAt(record, cols.Credit)

	switch {
	case debit != "" && credit != "":
		return decimal.Zero, fmt.Errorf("row has both debit and credit values")
	case debit != "":
		amount, err := normalizer.ParseAmount(debit, european)
		if err != nil {
			return decimal.Zero, err
		}
		return amount.Abs().Neg(), nil
	case credit != "":
		amount, err := normalizer.ParseAmount(credit, european)
		if err != nil {
			return decimal.Zero, err
		}
		return amount.Abs(), nil
	default:
		return decimal.Zero, fmt.Errorf("row has neither debit nor credit value")
	}
}

func fieldAt(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func collectColumn(rows [][]string, col int) []string {
	var out []string
	for _, row := range rows {
		if v := fieldAt(row, col); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func collectAmounts(rows [][]string, cols columnMap) []string {
	if cols.IsDoubleEntry {
		out := collectColumn(rows, cols.Debit)
		return append(out, collectColumn(rows, cols.Credit)...)
	}
	return collectColumn(rows, cols.Amount)
}

// normalizeBytes strips a UTF-8 BOM and transcodes Latin-1 exports
func normalizeBytes(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}
	if utf8.Valid(data) {
		return data
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return []byte(string(runes))
}
