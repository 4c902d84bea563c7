// Package constants provides shared constants for the vest-optimizer application.
package constants

// Financial constants
const (
	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// ShareTolerance is the tolerance for share count comparisons
	ShareTolerance = 1e-6

	// MultiplierPrecision is the rounding precision for sweep axis values
	MultiplierPrecision = 1e6
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatTSV is the tab-separated output format
	OutputFormatTSV = "tsv"
)

// Sweep failure policies
const (
	// FailurePolicyAbort stops a sweep at the first failed scenario
	FailurePolicyAbort = "abort"

	// FailurePolicySkip records a failed scenario and continues
	FailurePolicySkip = "skip"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix prefixes environment overrides, e.g. VEST_RELOCATIONCOST
	EnvPrefix = "VEST"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)

// Sweep defaults
const (
	// DefaultWorkers is the number of scenarios solved concurrently
	DefaultWorkers = 1

	// DefaultAlternateReturn applies when alternateReturn is omitted
	DefaultAlternateReturn = 1.0

	// MaxGridCells is the grid size above which configuration warns
	MaxGridCells = 10000

	// MaxSweepScenarios is the grid size above which configuration is rejected
	MaxSweepScenarios = 100000
)
