// Package validation provides common validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/vest-optimizer/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	switch format {
	case constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatTSV:
		return nil
	}
	return fmt.Errorf("expected output format of %s, %s or %s, got %s",
		constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatTSV, format)
}

// ValidateFailurePolicy checks if the sweep failure policy is supported.
func ValidateFailurePolicy(policy string) error {
	if policy != constants.FailurePolicyAbort && policy != constants.FailurePolicySkip {
		return fmt.Errorf("expected failure policy of %s or %s, got %s",
			constants.FailurePolicyAbort, constants.FailurePolicySkip, policy)
	}
	return nil
}
