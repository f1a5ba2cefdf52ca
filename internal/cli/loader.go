package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/amc/internal/am"
	"github.com/roach88/amc/internal/compiler"
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the machines loaded from a directory.
type LoadResult struct {
	Machines  []*am.ActorMachine
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Line returns the source line of the error, or 0.
func (e *LoadError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// LoadSpecs loads and compiles every machine.* entry of the CUE package in
// dir. A nil result means nothing could be loaded; otherwise the result
// holds the machines that compiled and errs the ones that did not.
func LoadSpecs(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := compiler.FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	value, _, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, []error{convertCompileError(err, ErrCodeLoadFailed)}
	}

	machines, compileErrs := compiler.CompileMachines(value, mode == LoadModeFailFast)
	result := &LoadResult{Machines: machines, FileCount: len(files)}

	var errs []error
	for _, err := range compileErrs {
		errs = append(errs, convertCompileError(err, ErrCodeGeneric))
	}
	return result, errs
}

// convertCompileError converts a compiler error to a LoadError with
// position info. fallback is used for errors without a compile field.
func convertCompileError(err error, fallback string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		code := MapFieldToErrorCode(compileErr.Field)
		if code == ErrCodeGeneric {
			code = fallback
		}
		return &LoadError{
			Code:    code,
			Field:   compileErr.Field,
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: fallback, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E008" // Database error

	// Machine description errors
	ErrCodeNoMachines     = "E101" // No machine.* entries
	ErrCodeBadPort        = "E102" // Port missing or invalid direction
	ErrCodeBadCondition   = "E103" // Condition neither predicate nor port
	ErrCodeInvalidType    = "E104" // Non-integer where an integer is required
	ErrCodeMissingField   = "E105" // Required instruction field missing
	ErrCodeNoStates       = "E106" // Machine without states
	ErrCodeScenarioFailed = "E110" // Scenario could not be executed
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "machine":
		return ErrCodeNoMachines
	case field == "states":
		return ErrCodeNoStates
	case field == "type":
		return ErrCodeInvalidType
	case field == "cue":
		return ErrCodeBuildFailed
	case strings.HasPrefix(field, "ports."):
		return ErrCodeBadPort
	case strings.HasPrefix(field, "conditions["):
		return ErrCodeBadCondition
	case strings.HasPrefix(field, "states["):
		return ErrCodeMissingField
	default:
		return ErrCodeGeneric
	}
}
