// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/vest-optimizer/pkg/constants"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
// Used for making logical comparisons.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// RoundTo rounds a value to the given precision, e.g. 1e6 for six decimals.
func RoundTo(val, precision float64) float64 {
	return math.Round(val*precision) / precision
}

// IsPositiveShares checks if a share count is positive beyond solver noise
func IsPositiveShares(val float64) bool {
	return val > constants.ShareTolerance
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}
