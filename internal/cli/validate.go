package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/amc/internal/compiler"
)

// MachineValidation holds the validation results of one machine.
type MachineValidation struct {
	Machine   string                     `json:"machine"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
	Livelocks []compiler.LivelockWarning `json:"livelocks,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"` // load errors
	Machines []MachineValidation        `json:"machines"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Check machines for structural errors",
		Long: `Check compiled machines against the structural rules the analysis and
the scheduler rely on: one instruction per state, indices in range,
declared ports used in their declared direction.

Wait-free control cycles are reported as warnings; they do not fail
validation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)
	if loadResult == nil {
		return outputLoadFailure(formatter, loadErrors[0])
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	result := ValidationResult{Valid: true, Machines: []MachineValidation{}}
	for _, err := range loadErrors {
		code, message := parseCompileError(err)
		line := 0
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			line = loadErr.Line()
		}
		result.Errors = append(result.Errors, compiler.ValidationError{
			Field:   "load",
			Message: message,
			Code:    code,
			Line:    line,
		})
		result.Valid = false
	}

	for _, m := range loadResult.Machines {
		formatter.VerboseLog("Validating machine: %s", m.Name)
		mv := MachineValidation{
			Machine:   m.Name,
			Errors:    compiler.Validate(m),
			Livelocks: compiler.AnalyzeLivelocks(m),
		}
		if len(mv.Errors) > 0 {
			result.Valid = false
		}
		result.Machines = append(result.Machines, mv)
	}

	return outputValidation(formatter, result)
}

// outputValidation outputs validation results; exit code 1 when invalid.
func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	errCount := len(result.Errors)
	for _, mv := range result.Machines {
		errCount += len(mv.Errors)
	}

	if formatter.JSON() {
		if result.Valid {
			return formatter.Success(result)
		}
		first := firstValidationError(result)
		if err := formatter.Failure(first.Code, first.Message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", errCount))
	}

	w := formatter.Writer
	if result.Valid {
		fmt.Fprintf(w, "✓ All %d machine(s) valid\n", len(result.Machines))
	} else {
		fmt.Fprintln(w, "✗ Validation failed")
	}

	for _, err := range result.Errors {
		fmt.Fprintln(w)
		if err.Line > 0 {
			fmt.Fprintf(w, "line %d\n", err.Line)
		}
		fmt.Fprintf(w, "  %s: %s\n", err.Code, err.Message)
	}
	for _, mv := range result.Machines {
		if len(mv.Errors) == 0 && len(mv.Livelocks) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", mv.Machine)
		for _, err := range mv.Errors {
			fmt.Fprintf(w, "  %s %s: %s\n", err.Code, err.Field, err.Message)
		}
		for _, lw := range mv.Livelocks {
			fmt.Fprintf(w, "  %s: %s\n", lw.Level, lw.Message)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", errCount))
	}
	return nil
}

func firstValidationError(result ValidationResult) compiler.ValidationError {
	if len(result.Errors) > 0 {
		return result.Errors[0]
	}
	for _, mv := range result.Machines {
		if len(mv.Errors) > 0 {
			return mv.Errors[0]
		}
	}
	return compiler.ValidationError{Code: ErrCodeGeneric, Message: "validation failed"}
}
