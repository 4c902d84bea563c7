// Package config defines the data structures related to configuration and
// includes functions for loading, normalizing, and validating the config.
package config

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/iwvelando/vest-optimizer/internal/scenario"
	"github.com/iwvelando/vest-optimizer/pkg/constants"
	"github.com/iwvelando/vest-optimizer/pkg/mathutil"
	"github.com/iwvelando/vest-optimizer/pkg/milp"
	"github.com/iwvelando/vest-optimizer/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for vest-optimizer.
type Configuration struct {
	Taxes           TaxConfig     `yaml:"taxes" mapstructure:"taxes"`
	Shares          ShareConfig   `yaml:"shares" mapstructure:"shares"`
	AlternateReturn float64       `yaml:"alternateReturn" mapstructure:"alternateReturn"`
	RelocationCost  float64       `yaml:"relocationCost" mapstructure:"relocationCost"`
	Sweep           SweepConfig   `yaml:"sweep" mapstructure:"sweep"`
	Solver          SolverConfig  `yaml:"solver,omitempty" mapstructure:"solver"`
	Logging         LoggingConfig `yaml:"logging,omitempty" mapstructure:"logging"`
	Output          OutputConfig  `yaml:"output,omitempty" mapstructure:"output"`
}

// RatePair holds a short-term and a long-term capital gains rate.
type RatePair struct {
	ShortTerm float64 `yaml:"shortTerm" mapstructure:"shortTerm"`
	LongTerm  float64 `yaml:"longTerm" mapstructure:"longTerm"`
}

// TaxConfig holds withholding and capital gains rates as fractions.
type TaxConfig struct {
	WithholdingRate  float64  `yaml:"withholdingRate" mapstructure:"withholdingRate"`
	Federal          RatePair `yaml:"federal" mapstructure:"federal"`
	CurrentResidence RatePair `yaml:"currentResidence" mapstructure:"currentResidence"`
	NewResidence     RatePair `yaml:"newResidence" mapstructure:"newResidence"`
}

// ShareConfig describes the vested shares.
type ShareConfig struct {
	Basis       float64 `yaml:"basis" mapstructure:"basis"`
	PreTaxCount float64 `yaml:"preTaxCount" mapstructure:"preTaxCount"`
}

// Range is an inclusive, evenly spaced axis of multipliers.
type Range struct {
	Min  float64 `yaml:"min" mapstructure:"min"`
	Max  float64 `yaml:"max" mapstructure:"max"`
	Step float64 `yaml:"step,omitempty" mapstructure:"step"`
}

// SweepConfig defines the grid of price scenarios.
type SweepConfig struct {
	NearTerm   Range  `yaml:"nearTerm" mapstructure:"nearTerm"`
	LongerTerm Range  `yaml:"longerTerm" mapstructure:"longerTerm"`
	Workers    int    `yaml:"workers,omitempty" mapstructure:"workers"`
	OnFailure  string `yaml:"onFailure,omitempty" mapstructure:"onFailure"` // abort, skip
}

// SolverConfig tunes the MILP engine.
type SolverConfig struct {
	Tolerance float64       `yaml:"tolerance,omitempty" mapstructure:"tolerance"` // integrality
	Timeout   time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`     // per scenario
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" mapstructure:"format"` // pretty, csv, tsv
	File   string `yaml:"file,omitempty" mapstructure:"file"`     // optional file output
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	if !v.IsSet("alternateReturn") {
		configuration.AlternateReturn = constants.DefaultAlternateReturn
	}
	configuration.Normalize()
	return &configuration, nil
}

// Normalize applies defaults for omitted optional settings.
func (c *Configuration) Normalize() {
	c.Sweep.OnFailure = strings.ToLower(strings.TrimSpace(c.Sweep.OnFailure))
	if c.Sweep.OnFailure == "" {
		c.Sweep.OnFailure = constants.FailurePolicyAbort
	}
	if c.Sweep.Workers <= 0 {
		c.Sweep.Workers = constants.DefaultWorkers
	}
	if c.Solver.Tolerance <= 0 {
		c.Solver.Tolerance = milp.DefaultTolerance
	}
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}
}

// Validate returns an error when the configuration cannot produce a sweep.
func (c *Configuration) Validate() error {
	if c.Shares.Basis <= 0 {
		return fmt.Errorf("share basis must be positive, got %g", c.Shares.Basis)
	}
	if c.Shares.PreTaxCount < 0 {
		return fmt.Errorf("pre-tax share count must be non-negative, got %g", c.Shares.PreTaxCount)
	}
	if c.Taxes.WithholdingRate < 0 || c.Taxes.WithholdingRate > 1 {
		return fmt.Errorf("withholding rate must be between 0 and 1, got %g", c.Taxes.WithholdingRate)
	}
	if c.AlternateReturn < 0 {
		return fmt.Errorf("alternate return must be non-negative, got %g", c.AlternateReturn)
	}
	if c.RelocationCost < 0 {
		return fmt.Errorf("relocation cost must be non-negative, got %g", c.RelocationCost)
	}
	near, err := c.Sweep.NearTerm.Values()
	if err != nil {
		return fmt.Errorf("sweep nearTerm: %w", err)
	}
	longer, err := c.Sweep.LongerTerm.Values()
	if err != nil {
		return fmt.Errorf("sweep longerTerm: %w", err)
	}
	if scenarios := len(near) * len(longer); scenarios > constants.MaxSweepScenarios {
		return fmt.Errorf("sweep grid has %d scenarios, above the limit of %d", scenarios, constants.MaxSweepScenarios)
	}
	if err := validation.ValidateFailurePolicy(c.Sweep.OnFailure); err != nil {
		return err
	}
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		return err
	}
	if c.Solver.Timeout < 0 {
		return fmt.Errorf("solver timeout must be non-negative, got %s", c.Solver.Timeout)
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	warnings := validation.ValidateRates([]validation.RateConfig{
		{Name: "federal short-term", Rate: c.Taxes.Federal.ShortTerm},
		{Name: "federal long-term", Rate: c.Taxes.Federal.LongTerm},
		{Name: "current residence short-term", Rate: c.Taxes.CurrentResidence.ShortTerm},
		{Name: "current residence long-term", Rate: c.Taxes.CurrentResidence.LongTerm},
		{Name: "new residence short-term", Rate: c.Taxes.NewResidence.ShortTerm},
		{Name: "new residence long-term", Rate: c.Taxes.NewResidence.LongTerm},
	})

	if warning := validation.ValidateShares(c.Shares.PreTaxCount, c.Taxes.WithholdingRate); warning != "" {
		warnings = append(warnings, warning)
	}

	near, nearErr := c.Sweep.NearTerm.Values()
	longer, longerErr := c.Sweep.LongerTerm.Values()
	if nearErr == nil && longerErr == nil {
		if warning := validation.ValidateGridSize(len(near), len(longer)); warning != "" {
			warnings = append(warnings, warning)
		}
	}

	return warnings
}

// Values expands the range into its axis values, rounded to remove float
// drift. A zero step is only valid for a single-value range, and an axis
// may hold at most constants.MaxSweepScenarios values.
func (r Range) Values() ([]float64, error) {
	for _, bound := range []float64{r.Min, r.Max, r.Step} {
		if math.IsNaN(bound) || math.IsInf(bound, 0) {
			return nil, fmt.Errorf("range bounds must be finite, got min %g max %g step %g", r.Min, r.Max, r.Step)
		}
	}
	if r.Min <= 0 {
		return nil, fmt.Errorf("multipliers must be positive, got min %g", r.Min)
	}
	if r.Max < r.Min {
		return nil, fmt.Errorf("min %g must not exceed max %g", r.Min, r.Max)
	}
	if r.Step < 0 {
		return nil, fmt.Errorf("step must be non-negative, got %g", r.Step)
	}
	if r.Step == 0 {
		if r.Max != r.Min {
			return nil, fmt.Errorf("step is required when min %g and max %g differ", r.Min, r.Max)
		}
		return []float64{r.Min}, nil
	}

	steps := math.Floor((r.Max-r.Min)/r.Step + 1e-9)
	if math.IsInf(steps, 0) || steps+1 > constants.MaxSweepScenarios {
		return nil, fmt.Errorf("step %g over [%g, %g] yields more than %d values", r.Step, r.Min, r.Max, constants.MaxSweepScenarios)
	}
	count := int(steps) + 1
	values := make([]float64, count)
	for i := range values {
		values[i] = mathutil.RoundTo(r.Min+float64(i)*r.Step, constants.MultiplierPrecision)
	}
	return values, nil
}

// ScenarioInputs returns the inputs of the scenario at the given multipliers.
func (c *Configuration) ScenarioInputs(nearTerm, longerTerm float64) scenario.Inputs {
	return scenario.Inputs{
		NearTermMultiplier:   nearTerm,
		LongerTermMultiplier: longerTerm,
		WithholdingRate:      c.Taxes.WithholdingRate,
		CurrentShortTermRate: c.Taxes.CurrentResidence.ShortTerm,
		CurrentLongTermRate:  c.Taxes.CurrentResidence.LongTerm,
		NewShortTermRate:     c.Taxes.NewResidence.ShortTerm,
		NewLongTermRate:      c.Taxes.NewResidence.LongTerm,
		FederalShortTermRate: c.Taxes.Federal.ShortTerm,
		FederalLongTermRate:  c.Taxes.Federal.LongTerm,
		Basis:                c.Shares.Basis,
		PreTaxShares:         c.Shares.PreTaxCount,
		AlternateReturn:      c.AlternateReturn,
		RelocationCost:       c.RelocationCost,
	}
}
