// Package scenario builds and solves the share-disposal model for a single
// pair of price-growth multipliers.
//
// Shares left after withholding are split across four categories: short-term
// and long-term gains under the current residence, and short-term and
// long-term gains under a new residence. A binary indicator charges a fixed
// relocation cost whenever any share is sold under the new residence.
package scenario

import (
	"fmt"
	"math"
)

// Inputs holds every parameter of one scenario. Rates are fractions, the
// multipliers and the alternate return are growth factors (1.1 is +10%).
type Inputs struct {
	NearTermMultiplier   float64 `json:"nearTermMultiplier"`
	LongerTermMultiplier float64 `json:"longerTermMultiplier"`

	WithholdingRate float64 `json:"withholdingRate"`

	CurrentShortTermRate float64 `json:"currentShortTermRate"`
	CurrentLongTermRate  float64 `json:"currentLongTermRate"`
	NewShortTermRate     float64 `json:"newShortTermRate"`
	NewLongTermRate      float64 `json:"newLongTermRate"`
	FederalShortTermRate float64 `json:"federalShortTermRate"`
	FederalLongTermRate  float64 `json:"federalLongTermRate"`

	Basis        float64 `json:"basis"`
	PreTaxShares float64 `json:"preTaxShares"`

	AlternateReturn float64 `json:"alternateReturn"`
	RelocationCost  float64 `json:"relocationCost"`
}

// PostWithholdingShares is the number of shares left to allocate.
func (in Inputs) PostWithholdingShares() float64 {
	return in.PreTaxShares * (1 - in.WithholdingRate)
}

// ShortTermPrice is the share price at the near-term sale point.
func (in Inputs) ShortTermPrice() float64 {
	return in.Basis * in.NearTermMultiplier
}

// LongTermPrice is the share price at the long-term sale point.
func (in Inputs) LongTermPrice() float64 {
	return in.ShortTermPrice() * in.LongerTermMultiplier
}

// shortTermOpportunityPerShare is the extra return earned by reinvesting one
// share's short-term proceeds at the alternate rate until the long-term
// sale point. It is negative when the alternate return is below 1.
func (in Inputs) shortTermOpportunityPerShare() float64 {
	return in.ShortTermPrice() * (in.AlternateReturn - 1)
}

// check rejects inputs that cannot produce a valid model.
func (in Inputs) check() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"near-term multiplier", in.NearTermMultiplier},
		{"longer-term multiplier", in.LongerTermMultiplier},
		{"withholding rate", in.WithholdingRate},
		{"current short-term rate", in.CurrentShortTermRate},
		{"current long-term rate", in.CurrentLongTermRate},
		{"new short-term rate", in.NewShortTermRate},
		{"new long-term rate", in.NewLongTermRate},
		{"federal short-term rate", in.FederalShortTermRate},
		{"federal long-term rate", in.FederalLongTermRate},
		{"basis", in.Basis},
		{"pre-tax shares", in.PreTaxShares},
		{"alternate return", in.AlternateReturn},
		{"relocation cost", in.RelocationCost},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidModelInput, f.name, f.value)
		}
	}

	if in.NearTermMultiplier <= 0 {
		return fmt.Errorf("%w: near-term multiplier must be positive, got %v", ErrInvalidModelInput, in.NearTermMultiplier)
	}
	if in.LongerTermMultiplier <= 0 {
		return fmt.Errorf("%w: longer-term multiplier must be positive, got %v", ErrInvalidModelInput, in.LongerTermMultiplier)
	}
	if in.PreTaxShares < 0 {
		return fmt.Errorf("%w: pre-tax share count must be non-negative, got %v", ErrInvalidModelInput, in.PreTaxShares)
	}
	if in.WithholdingRate < 0 || in.WithholdingRate > 1 {
		return fmt.Errorf("%w: withholding rate must be between 0 and 1, got %v", ErrInvalidModelInput, in.WithholdingRate)
	}
	return nil
}
