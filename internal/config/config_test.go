package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/vest-optimizer/pkg/constants"
	"github.com/iwvelando/vest-optimizer/pkg/milp"
)

const exampleYAML = `
taxes:
  withholdingRate: 0.5
  federal:
    shortTerm: 0.24
    longTerm: 0.15
  currentResidence:
    shortTerm: 0.13
    longTerm: 0.13
  newResidence:
    shortTerm: 0.0
    longTerm: 0.0
shares:
  basis: 10
  preTaxCount: 20
alternateReturn: 1.1
relocationCost: 5000
sweep:
  nearTerm:
    min: 0.8
    max: 1.2
    step: 0.1
  longerTerm:
    min: 1.0
    max: 1.5
    step: 0.25
  workers: 4
  onFailure: skip
solver:
  timeout: 2s
logging:
  level: debug
  format: console
output:
  format: CSV
`

func validConfiguration() Configuration {
	return Configuration{
		Taxes: TaxConfig{
			WithholdingRate:  0.5,
			Federal:          RatePair{ShortTerm: 0.24, LongTerm: 0.15},
			CurrentResidence: RatePair{ShortTerm: 0.13, LongTerm: 0.13},
		},
		Shares:          ShareConfig{Basis: 10, PreTaxCount: 20},
		AlternateReturn: 1.1,
		Sweep: SweepConfig{
			NearTerm:   Range{Min: 1, Max: 1},
			LongerTerm: Range{Min: 1, Max: 2, Step: 0.5},
			OnFailure:  constants.FailurePolicyAbort,
			Workers:    1,
		},
		Output: OutputConfig{Format: constants.OutputFormatPretty},
	}
}

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("LoadConfiguration() error = %v", err)
				return
			}
			if config == nil {
				t.Errorf("LoadConfiguration() returned nil config")
			}
		})
	}
}

func TestLoadConfigurationExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(exampleYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	config, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if config.Taxes.WithholdingRate != 0.5 {
		t.Errorf("Expected withholding rate 0.5, got %v", config.Taxes.WithholdingRate)
	}
	if config.Taxes.Federal.ShortTerm != 0.24 || config.Taxes.Federal.LongTerm != 0.15 {
		t.Errorf("Unexpected federal rates %+v", config.Taxes.Federal)
	}
	if config.Shares.Basis != 10 || config.Shares.PreTaxCount != 20 {
		t.Errorf("Unexpected shares %+v", config.Shares)
	}
	if config.AlternateReturn != 1.1 {
		t.Errorf("Expected alternate return 1.1, got %v", config.AlternateReturn)
	}
	if config.RelocationCost != 5000 {
		t.Errorf("Expected relocation cost 5000, got %v", config.RelocationCost)
	}
	if config.Sweep.Workers != 4 || config.Sweep.OnFailure != constants.FailurePolicySkip {
		t.Errorf("Unexpected sweep settings %+v", config.Sweep)
	}
	if config.Solver.Timeout != 2*time.Second {
		t.Errorf("Expected solver timeout 2s, got %v", config.Solver.Timeout)
	}
	if config.Output.Format != constants.OutputFormatCSV {
		t.Errorf("Expected output format to be lower-cased to csv, got %q", config.Output.Format)
	}
	if config.Logging.Level != "debug" || config.Logging.Format != "console" {
		t.Errorf("Unexpected logging settings %+v", config.Logging)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfigurationFromReaderDefaults(t *testing.T) {
	config, err := LoadConfigurationFromReader(strings.NewReader(`
shares:
  basis: 10
  preTaxCount: 20
sweep:
  nearTerm: {min: 1, max: 1}
  longerTerm: {min: 1, max: 1}
`))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}

	if config.Sweep.Workers != constants.DefaultWorkers {
		t.Errorf("Expected default workers %d, got %d", constants.DefaultWorkers, config.Sweep.Workers)
	}
	if config.Sweep.OnFailure != constants.FailurePolicyAbort {
		t.Errorf("Expected default failure policy abort, got %q", config.Sweep.OnFailure)
	}
	if config.Solver.Tolerance != milp.DefaultTolerance {
		t.Errorf("Expected default tolerance, got %v", config.Solver.Tolerance)
	}
	if config.Output.Format != constants.OutputFormatPretty {
		t.Errorf("Expected default output format pretty, got %q", config.Output.Format)
	}
	if config.AlternateReturn != 1 {
		t.Errorf("Expected default alternate return 1, got %v", config.AlternateReturn)
	}
}

func TestLoadConfigurationKeepsExplicitZeroAlternateReturn(t *testing.T) {
	config, err := LoadConfigurationFromReader(strings.NewReader(`
shares:
  basis: 10
  preTaxCount: 20
alternateReturn: 0
sweep:
  nearTerm: {min: 1, max: 1}
  longerTerm: {min: 1, max: 1}
`))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}
	if config.AlternateReturn != 0 {
		t.Errorf("Expected explicit alternate return 0 to be kept, got %v", config.AlternateReturn)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfigurationFromReaderInvalidYAML(t *testing.T) {
	if _, err := LoadConfigurationFromReader(strings.NewReader("shares: [unclosed")); err == nil {
		t.Errorf("LoadConfigurationFromReader() expected error for invalid YAML")
	}
}

func TestLoadConfigurationEnvOverride(t *testing.T) {
	t.Setenv("VEST_RELOCATIONCOST", "1234")
	t.Setenv("VEST_SHARES_BASIS", "12.5")

	config, err := LoadConfigurationFromReader(strings.NewReader(exampleYAML))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}
	if config.RelocationCost != 1234 {
		t.Errorf("Expected relocation cost from environment 1234, got %v", config.RelocationCost)
	}
	if config.Shares.Basis != 12.5 {
		t.Errorf("Expected basis from environment 12.5, got %v", config.Shares.Basis)
	}
}

func TestRangeValues(t *testing.T) {
	tests := []struct {
		name      string
		r         Range
		want      []float64
		wantError bool
	}{
		{name: "single value", r: Range{Min: 1.2, Max: 1.2}, want: []float64{1.2}},
		{name: "inclusive upper bound", r: Range{Min: 0.8, Max: 1.2, Step: 0.1}, want: []float64{0.8, 0.9, 1.0, 1.1, 1.2}},
		{name: "step overshoots max", r: Range{Min: 1, Max: 1.9, Step: 0.5}, want: []float64{1, 1.5}},
		{name: "zero min", r: Range{Min: 0, Max: 1, Step: 0.5}, wantError: true},
		{name: "max below min", r: Range{Min: 2, Max: 1, Step: 0.5}, wantError: true},
		{name: "negative step", r: Range{Min: 1, Max: 2, Step: -1}, wantError: true},
		{name: "missing step", r: Range{Min: 1, Max: 2}, wantError: true},
		{name: "vanishing step", r: Range{Min: 1, Max: 2, Step: 1e-300}, wantError: true},
		{name: "step too fine", r: Range{Min: 1, Max: 2, Step: 1e-9}, wantError: true},
		{name: "infinite max", r: Range{Min: 1, Max: math.Inf(1), Step: 0.1}, wantError: true},
		{name: "NaN step", r: Range{Min: 1, Max: 2, Step: math.NaN()}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.r.Values()
			if tt.wantError {
				if err == nil {
					t.Errorf("Values() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Values() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Values() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Values()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Configuration)
		valid  bool
	}{
		{name: "valid", mutate: func(c *Configuration) {}, valid: true},
		{name: "zero basis", mutate: func(c *Configuration) { c.Shares.Basis = 0 }},
		{name: "negative shares", mutate: func(c *Configuration) { c.Shares.PreTaxCount = -1 }},
		{name: "withholding above one", mutate: func(c *Configuration) { c.Taxes.WithholdingRate = 1.5 }},
		{name: "negative alternate return", mutate: func(c *Configuration) { c.AlternateReturn = -1 }},
		{name: "total loss alternate return", mutate: func(c *Configuration) { c.AlternateReturn = 0 }, valid: true},
		{name: "negative relocation cost", mutate: func(c *Configuration) { c.RelocationCost = -1 }},
		{name: "bad near-term range", mutate: func(c *Configuration) { c.Sweep.NearTerm = Range{Min: 2, Max: 1} }},
		{name: "bad longer-term range", mutate: func(c *Configuration) { c.Sweep.LongerTerm = Range{Min: 0, Max: 1} }},
		{name: "unknown failure policy", mutate: func(c *Configuration) { c.Sweep.OnFailure = "retry" }},
		{name: "unknown output format", mutate: func(c *Configuration) { c.Output.Format = "xml" }},
		{name: "negative timeout", mutate: func(c *Configuration) { c.Solver.Timeout = -time.Second }},
		{name: "vanishing step", mutate: func(c *Configuration) { c.Sweep.NearTerm = Range{Min: 1, Max: 2, Step: 1e-300} }},
		{name: "grid above scenario limit", mutate: func(c *Configuration) {
			c.Sweep.NearTerm = Range{Min: 1, Max: 400, Step: 1}
			c.Sweep.LongerTerm = Range{Min: 1, Max: 400, Step: 1}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfiguration()
			tt.mutate(&config)
			err := config.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Validate() expected error but got none")
			}
		})
	}
}

func TestValidateConfigurationWarnings(t *testing.T) {
	config := validConfiguration()
	if warnings := config.ValidateConfiguration(); len(warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", warnings)
	}

	config.Taxes.Federal.ShortTerm = 24
	config.Shares.PreTaxCount = 0
	warnings := config.ValidateConfiguration()
	if len(warnings) != 2 {
		t.Fatalf("Expected 2 warnings, got %v", warnings)
	}
	if !strings.Contains(warnings[0], "federal short-term") {
		t.Errorf("Expected rate warning first, got %q", warnings[0])
	}
}

func TestScenarioInputs(t *testing.T) {
	config := validConfiguration()
	config.Taxes.NewResidence = RatePair{ShortTerm: 0.05, LongTerm: 0.04}
	config.RelocationCost = 250

	in := config.ScenarioInputs(1.1, 1.3)

	if in.NearTermMultiplier != 1.1 || in.LongerTermMultiplier != 1.3 {
		t.Errorf("Unexpected multipliers %v, %v", in.NearTermMultiplier, in.LongerTermMultiplier)
	}
	if in.CurrentShortTermRate != 0.13 || in.NewLongTermRate != 0.04 {
		t.Errorf("Residence rates not mapped: %+v", in)
	}
	if in.FederalShortTermRate != 0.24 || in.FederalLongTermRate != 0.15 {
		t.Errorf("Federal rates not mapped: %+v", in)
	}
	if in.PostWithholdingShares() != 10 {
		t.Errorf("Expected 10 post-withholding shares, got %v", in.PostWithholdingShares())
	}
	if in.RelocationCost != 250 || in.AlternateReturn != 1.1 {
		t.Errorf("Unexpected relocation cost or alternate return: %+v", in)
	}
}
