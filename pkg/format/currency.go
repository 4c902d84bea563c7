// Package format renders amounts and share counts for human-readable output.
package format

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	formatted := printer.Sprintf("%.2f", math.Abs(amount))
	if amount < 0 && formatted != "0.00" {
		return "-$" + formatted
	}
	return "$" + formatted
}

// Shares returns a share count with thousands separators and up to four
// decimals, dropping trailing zeros (e.g., "1,234.5").
func Shares(count float64) string {
	if math.Abs(count) < 5e-5 {
		return "0"
	}
	whole := math.Trunc(count)
	frac := math.Abs(count - whole)
	intPart := printer.Sprintf("%d", int64(math.Abs(whole)))

	decimals := strconv.FormatFloat(frac, 'f', 4, 64)
	if decimals == "1.0000" {
		intPart = printer.Sprintf("%d", int64(math.Abs(whole))+1)
		decimals = "0.0000"
	}
	decimals = strings.TrimRight(strings.TrimPrefix(decimals, "0"), "0")
	decimals = strings.TrimSuffix(decimals, ".")

	if count < 0 {
		return "-" + intPart + decimals
	}
	return intPart + decimals
}

// Multiplier renders a growth multiplier without float noise (e.g., "1.1").
func Multiplier(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
