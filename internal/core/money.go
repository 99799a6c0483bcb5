// Package core holds the ledger value types and the pure engines that
// operate on them: running balances and per-account aggregation.
//
// This file contains amount parsing, coercion and display formatting.
// Every amount in the ledger is a decimal.Decimal rounded to two places.
package core

import (
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of fractional digits kept for every amount.
const AmountPlaces = 2

var amountReplacer = strings.NewReplacer(",", "", "PHP", "", "Php", "", "₱", "", " ", "")

// AmountFromFloat converts a float to an amount. Non-finite input becomes zero,
// so arithmetic downstream never has to deal with NaN or infinities.
func AmountFromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f).Round(AmountPlaces)
}

// ParseAmount parses a user formatted amount such as "1,234.50" or "₱ 20".
// An empty string is a missing amount and parses to zero without error.
//
// Examples:
//
//	ParseAmount("1,234.50") -> 1234.5, nil
//	ParseAmount("")         -> 0, nil
//	ParseAmount("abc")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = amountReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(AmountPlaces), nil
}

// CoerceAmount is ParseAmount with every failure mapped to zero.
func CoerceAmount(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// NonNegative clamps negative amounts to zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// FormatAmount renders an amount with thousands grouping and two decimals,
// e.g. 1234.5 -> "1,234.50" and -20 -> "-20.00".
func FormatAmount(d decimal.Decimal) string {
	d = d.Round(AmountPlaces)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(AmountPlaces)
	frac := fixed[len(fixed)-AmountPlaces:]
	return sign + humanize.BigComma(d.BigInt()) + "." + frac
}

// FormatAmountBlank is FormatAmount except that exactly zero renders as "".
func FormatAmountBlank(d decimal.Decimal) string {
	if d.Round(AmountPlaces).IsZero() {
		return ""
	}
	return FormatAmount(d)
}
