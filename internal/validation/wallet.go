// Package validation holds input validation helpers for the HTTP layer.
// Malformed input is rejected here, before any mutation is attempted.
package validation

import (
	"regexp"

	"github.com/shopspring/decimal"
)

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidAmount reports whether an amount is usable for a wallet operation:
// strictly positive with at most two decimal places.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Exponent() >= -2
}

// ValidCurrency reports whether code is a three-letter uppercase currency
// code.
func ValidCurrency(code string) bool {
	return currencyRegex.MatchString(code)
}
