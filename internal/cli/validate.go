package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/reach/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.ValidationError `json:"warnings,omitempty"`
	Cycles   []compiler.CycleWarning    `json:"cycles,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <networks-dir>",
		Short: "Check network definitions without running them",
		Long: `Check CUE network definitions without computing a closure.

Reports compile errors, schema errors (empty names, separators inside line
labels, negative ceilings), warnings (duplicate lines, negative times,
isolated stations) and the station loops found in each network.

Exit status is 1 when any error is found. Warnings and loops alone do not
fail validation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := LoadNetworks(dir, LoadModeCollectAll)

	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	result := validateAll(loadResult, loadErrors, formatter)
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// validateAll runs schema validation and loop analysis on every compiled
// network and folds load errors in as validation errors.
func validateAll(loadResult *LoadResult, loadErrors []error, formatter *OutputFormatter) ValidationResult {
	var result ValidationResult

	for _, err := range loadErrors {
		code, message := parseCompileError(err)
		ve := compiler.ValidationError{
			Field:    "load",
			Message:  message,
			Code:     code,
			Severity: compiler.SeverityError,
		}
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			ve.Line = loadErr.Pos.Line()
		}
		result.Errors = append(result.Errors, ve)
	}

	for i := range loadResult.Networks {
		spec := &loadResult.Networks[i]
		formatter.VerboseLog("Validating network: %s", spec.Name)

		for _, finding := range compiler.Validate(spec) {
			finding.Field = spec.Name + "." + finding.Field
			if finding.IsError() {
				result.Errors = append(result.Errors, finding)
			} else {
				result.Warnings = append(result.Warnings, finding)
			}
		}

		result.Cycles = append(result.Cycles, compiler.AnalyzeCycles(spec)...)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ All networks valid")
	writeFindings(formatter.Writer, result)
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs a failed validation.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    result.Errors[0].Code,
				Message: result.Errors[0].Message,
			},
		}
		if err := formatter.JSON(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range result.Errors {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}
	writeFindings(formatter.Writer, result)

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}

func writeFindings(w io.Writer, result ValidationResult) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "  warning %s: %s\n", warn.Code, warn.Message)
	}
	for _, c := range result.Cycles {
		fmt.Fprintf(w, "  %s: %s\n", c.Level, c.Message)
	}
}

// ValidateNetworksDir validates all networks in a directory.
// This is a helper function for external callers.
func ValidateNetworksDir(dir string) (ValidationResult, error) {
	loadResult, loadErrors := LoadNetworks(dir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return ValidationResult{}, loadErrors[0]
	}

	silent := &OutputFormatter{Format: "text", Writer: io.Discard}
	return validateAll(loadResult, loadErrors, silent), nil
}
