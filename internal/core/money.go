// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input
// and formatting them for display. Amounts stay exact decimals until they are
// formatted; formatting is the only place rounding to two places happens.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// DefaultCurrencySymbol is prefixed to every formatted amount.
const DefaultCurrencySymbol = "$"

// ParseAmount converts a decimal string to an exact amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// exponents and thousands separators are rejected, so the result is never
// negative.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	digits := 0
	for _, r := range s {
		if r == '.' {
			continue
		}
		if !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
		digits++
	}
	if digits == 0 || digits > 18 {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatMoney renders an amount with the default currency symbol and two
// decimals, e.g. "$1838.75" or "-$12.00".
func FormatMoney(d decimal.Decimal) string {
	return FormatAmount(d, DefaultCurrencySymbol)
}

// FormatAmount renders an amount with the given currency symbol and two decimals.
func FormatAmount(d decimal.Decimal, symbol string) string {
	if d.IsNegative() {
		return "-" + symbol + d.Abs().StringFixed(2)
	}
	return symbol + d.StringFixed(2)
}

// FormatSigned renders the magnitude of d prefixed by "+" for income and "-"
// otherwise, e.g. "+$3000.00".
func FormatSigned(d decimal.Decimal, income bool, symbol string) string {
	prefix := "-"
	if income {
		prefix = "+"
	}
	return prefix + symbol + d.Abs().StringFixed(2)
}
