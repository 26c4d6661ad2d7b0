// Package parser extracts transaction rows from statement files. PDF, CSV
// and XLSX statements all funnel into the same Result shape; per-line
// failures are collected rather than aborting the document.
package parser

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnsupported is returned for MIME types the parser cannot handle
var ErrUnsupported = errors.New("unsupported document type")

// ErrUnreadable is returned when the file itself cannot be decoded
var ErrUnreadable = errors.New("unreadable document")

// Line is one raw transaction extracted from a statement
type Line struct {
	Date        time.Time
	Amount      decimal.Decimal
	Description string
}

// LineError records a row that could not be parsed
type LineError struct {
	Line    int
	Message string
}

func (e LineError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Result is the outcome of parsing one document. Errors holds per-line
// failures for lines that looked like transactions but did not parse; good
// lines are kept regardless.
type Result struct {
	Lines         []Line
	Errors        []LineError
	AccountNumber *string
}

// Parser extracts transactions from statement files by MIME type
type Parser struct{}

// New creates a parser
func New() *Parser {
	return &Parser{}
}

// Parse dispatches on the document's MIME type
func (p *Parser) Parse(data []byte, mimeType string) (*Result, error) {
	switch mimeType {
	case "application/pdf":
		return p.parsePDF(data)
	case "text/csv", "text/tab-separated-values", "text/plain":
		return p.parseCSV(data)
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return p.parseXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
	}
}
