// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/vest-optimizer/pkg/constants"
)

// RateConfig names a single tax or withholding rate.
type RateConfig struct {
	Name string
	Rate float64
}

// ValidateRates returns a warning for every rate that falls outside [0, 1].
// Such rates are legal input to the model but almost always a unit mistake,
// e.g. 13 instead of 0.13.
func ValidateRates(rates []RateConfig) []string {
	var warnings []string
	for _, rate := range rates {
		if rate.Rate < 0 || rate.Rate > 1 {
			warnings = append(warnings, fmt.Sprintf("Rate '%s' is %g, expected a fraction between 0 and 1",
				rate.Name, rate.Rate))
		}
	}
	return warnings
}

// ValidateGridSize warns when a sweep grid is large enough to be slow.
func ValidateGridSize(rows, columns int) string {
	cells := rows * columns
	if cells > constants.MaxGridCells {
		return fmt.Sprintf("Sweep grid has %d scenarios (%d x %d), above the recommended %d",
			cells, rows, columns, constants.MaxGridCells)
	}
	return ""
}

// ValidateShares warns when no shares would remain to allocate.
func ValidateShares(preTaxShares, withholdingRate float64) string {
	if preTaxShares*(1-withholdingRate) == 0 {
		return fmt.Sprintf("No shares remain after withholding (%g shares at %g withholding)",
			preTaxShares, withholdingRate)
	}
	return ""
}
