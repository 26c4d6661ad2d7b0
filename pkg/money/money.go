// Package money provides precise conversion between decimal statement amounts
// and minor-unit representation, plus display formatting for exports.
package money

import (
	"fmt"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is assumed when a statement carries no currency information.
const DefaultCurrency = "USD"

// ToMinorUnits converts a decimal amount to integer minor units for the given
// currency (cents for USD/EUR, whole units for JPY).
func ToMinorUnits(amount decimal.Decimal, currencyCode string) (int64, error) {
	currency := gomoney.GetCurrency(currencyCode)
	if currency == nil {
		return 0, fmt.Errorf("unknown currency code: %s", currencyCode)
	}
	return amount.Shift(int32(currency.Fraction)).Round(0).IntPart(), nil
}

// FromMinorUnits converts integer minor units back to a decimal amount.
func FromMinorUnits(minor int64, currencyCode string) (decimal.Decimal, error) {
	currency := gomoney.GetCurrency(currencyCode)
	if currency == nil {
		return decimal.Zero, fmt.Errorf("unknown currency code: %s", currencyCode)
	}
	return decimal.New(minor, -int32(currency.Fraction)), nil
}

// Format renders a decimal amount with the currency's symbol and grouping,
// e.g. -1234.5 USD -> "-$1,234.50".
func Format(amount decimal.Decimal, currencyCode string) string {
	minor, err := ToMinorUnits(amount, currencyCode)
	if err != nil {
		return amount.StringFixed(2)
	}
	return gomoney.New(minor, currencyCode).Display()
}
