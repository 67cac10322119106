// Package types provides common value types used across till.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Money represents a monetary value as an integer count of the smallest
// currency unit. All arithmetic is integer-only, no floating point.
//
// The currency is not carried by the value: a till instance is configured
// for one currency and formats every amount with it.
//
// Examples:
//   - Money(1234).Format("jpy") = "¥1,234"
//   - Money(4900).Format("usd") = "$49.00"
type Money int64

// DefaultCurrency is the currency used when none is configured.
const DefaultCurrency = "jpy"

// Arithmetic operations

// Add adds two Money values.
func (m Money) Add(other Money) Money { return m + other }

// Subtract subtracts another Money value.
func (m Money) Subtract(other Money) Money { return m - other }

// Multiply multiplies the Money by a quantity.
func (m Money) Multiply(qty int64) Money { return m * Money(qty) }

// Divide divides the Money by a divisor. Uses integer division.
func (m Money) Divide(divisor int64) Money {
	if divisor == 0 {
		panic("money: division by zero")
	}
	return m / Money(divisor)
}

// Negate returns the negative of the Money value.
func (m Money) Negate() Money { return -m }

// Comparison methods

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m > 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m < 0 }

// Int64 returns the raw amount in the smallest unit.
func (m Money) Int64() int64 { return int64(m) }

// Formatting methods

// FormatMajor returns the major unit string without currency symbol, with
// thousands separators.
// For currencies with 2 decimal places: "1,049.00" for Money(104900) in usd.
// For currencies with 0 decimal places (JPY): "12,345" for Money(12345).
func (m Money) FormatMajor(currency string) string {
	decimals := currencyDecimals(currency)

	// Handle sign separately
	isNegative := m < 0
	absAmount := int64(m)
	if isNegative {
		absAmount = -absAmount
	}

	divisor := int64(1)
	for i := 0; i < decimals; i++ {
		divisor *= 10
	}

	result := groupThousands(absAmount / divisor)
	if decimals > 0 {
		format := fmt.Sprintf(".%%0%dd", decimals)
		result += fmt.Sprintf(format, absAmount%divisor)
	}

	if isNegative {
		return "-" + result
	}
	return result
}

// Format returns a human-readable string with currency symbol.
// Examples: "¥1,234", "$49.00", "€199.00"
func (m Money) Format(currency string) string {
	if m < 0 {
		return "-" + currencySymbol(currency) + Money(-m).FormatMajor(currency)
	}
	return currencySymbol(currency) + m.FormatMajor(currency)
}

// String formats the amount in DefaultCurrency.
func (m Money) String() string {
	return m.Format(DefaultCurrency)
}

// Helper functions

// groupThousands renders a non-negative integer with comma separators.
func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// currencySymbol returns the symbol for a currency code.
func currencySymbol(currency string) string {
	symbols := map[string]string{
		"usd": "$",
		"eur": "€",
		"gbp": "£",
		"jpy": "¥",
		"cad": "C$",
		"aud": "A$",
		"chf": "CHF ",
		"cny": "¥",
		"krw": "₩",
		"sek": "kr ",
		"nzd": "NZ$",
	}
	if sym, ok := symbols[strings.ToLower(currency)]; ok {
		return sym
	}
	return strings.ToUpper(currency) + " "
}

// currencyDecimals returns the number of decimal places for a currency.
func currencyDecimals(currency string) int {
	// Currencies with 0 decimal places
	zeroDecimal := map[string]bool{
		"jpy": true, // Japanese Yen
		"krw": true, // Korean Won
		"vnd": true, // Vietnamese Dong
		"clp": true, // Chilean Peso
		"pyg": true, // Paraguayan Guarani
		"idr": true, // Indonesian Rupiah
	}
	if zeroDecimal[strings.ToLower(currency)] {
		return 0
	}
	// Most currencies have 2 decimal places
	return 2
}

// Sum calculates the sum of multiple Money values.
func Sum(values ...Money) Money {
	var result Money
	for _, v := range values {
		result += v
	}
	return result
}
