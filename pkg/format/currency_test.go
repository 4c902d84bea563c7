package format

import "testing"

func TestCurrency(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		expected string
	}{
		{"Zero", 0, "$0.00"},
		{"Small", 12.5, "$12.50"},
		{"Thousands", 1234.56, "$1,234.56"},
		{"Millions", 1234567.891, "$1,234,567.89"},
		{"Negative", -1234.56, "-$1,234.56"},
		{"Negative rounds to zero", -0.001, "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Currency(tt.amount); got != tt.expected {
				t.Errorf("Currency(%v) = %q, expected %q", tt.amount, got, tt.expected)
			}
		})
	}
}

func TestShares(t *testing.T) {
	tests := []struct {
		name     string
		count    float64
		expected string
	}{
		{"Zero", 0, "0"},
		{"Noise", 1e-9, "0"},
		{"Whole", 10, "10"},
		{"Fraction", 2.5, "2.5"},
		{"Thousands with fraction", 3900.125, "3,900.125"},
		{"Rounds up to whole", 9.99999, "10"},
		{"Negative", -1.25, "-1.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Shares(tt.count); got != tt.expected {
				t.Errorf("Shares(%v) = %q, expected %q", tt.count, got, tt.expected)
			}
		})
	}
}

func TestMultiplier(t *testing.T) {
	if got := Multiplier(1.1); got != "1.1" {
		t.Errorf("Multiplier(1.1) = %q", got)
	}
	if got := Multiplier(2); got != "2" {
		t.Errorf("Multiplier(2) = %q", got)
	}
}
