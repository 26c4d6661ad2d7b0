package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type classifies a transaction as money out or money in
type Type string

const (
	TypeDebit  Type = "debit"
	TypeCredit Type = "credit"
)

// Valid reports whether t is a known transaction type
func (t Type) Valid() bool {
	return t == TypeDebit || t == TypeCredit
}

// Transaction is a financial line item extracted from (or attached to) a document
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	DocumentID    uuid.UUID       `json:"document_id"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	AccountNumber *string         `json:"account_number,omitempty"`
	VendorName    *string         `json:"vendor_name,omitempty"`
	Type          *Type           `json:"type,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SearchFilter holds the optional predicates, sort and pagination for a search
type SearchFilter struct {
	DocumentID *uuid.UUID
	Type       *Type
	DateFrom   *time.Time
	DateTo     *time.Time
	AmountMin  *decimal.Decimal
	AmountMax  *decimal.Decimal
	Query      string // substring over description, vendor and account number

	SortBy  string // date | amount | description | vendor_name | created_at
	SortDir string // asc | desc

	Page     int
	PageSize int
}

// SearchResult is a page of transactions plus the unpaginated total
type SearchResult struct {
	Items    []*Transaction `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}
