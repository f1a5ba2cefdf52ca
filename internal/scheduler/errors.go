package scheduler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/amc/internal/compiler"
)

// RuntimeError represents an error detected while stepping an instance.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Instance identifies the affected instance.
	Instance string

	// State is the controller state where the error occurred.
	State int

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeQuotaExceeded indicates an invocation ran past its op budget,
	// typically a Test/Exec cycle with no Wait.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeInvalidPC indicates a program counter outside the entry state
	// and the resume table.
	ErrCodeInvalidPC RuntimeErrorCode = "INVALID_PROGRAM_COUNTER"

	// ErrCodeActionFailed indicates a bound action returned an error.
	ErrCodeActionFailed RuntimeErrorCode = "ACTION_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Instance != "" {
		msg = fmt.Sprintf("%s (instance=%s, state=S%d)", msg, e.Instance, e.State)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsQuotaError returns true if the error is an op budget error.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	return hasCode(err, ErrCodeQuotaExceeded)
}

// IsInvalidPCError returns true if the error is an invalid program counter.
func IsInvalidPCError(err error) bool {
	return hasCode(err, ErrCodeInvalidPC)
}

// IsActionError returns true if the error came from a bound action.
func IsActionError(err error) bool {
	return hasCode(err, ErrCodeActionFailed)
}

// NewQuotaError creates a RuntimeError for an exhausted op budget.
func NewQuotaError(instance string, state, ops, maxOps int) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeQuotaExceeded,
		Message:  fmt.Sprintf("invocation exceeded max ops (%d > %d) without reaching a wait", ops, maxOps),
		Instance: instance,
		State:    state,
		Details: map[string]string{
			"ops":     fmt.Sprintf("%d", ops),
			"max_ops": fmt.Sprintf("%d", maxOps),
		},
	}
}

// NewInvalidPCError creates a RuntimeError for a program counter that is
// neither the entry state nor a resume target.
func NewInvalidPCError(instance string, pc int) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeInvalidPC,
		Message:  fmt.Sprintf("program counter S%d is not a resumable state", pc),
		Instance: instance,
		State:    pc,
	}
}

// NewActionError creates a RuntimeError wrapping a failed action.
func NewActionError(instance string, state int, transition string, err error) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeActionFailed,
		Message:  fmt.Sprintf("action %s failed", transition),
		Instance: instance,
		State:    state,
		Details:  map[string]string{"transition": transition},
		Err:      err,
	}
}

// SynthesisError reports a machine rejected before lowering.
type SynthesisError struct {
	Machine string
	Errors  []compiler.ValidationError
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		parts[i] = ve.Error()
	}
	return fmt.Sprintf("synthesize %s: %d validation error(s): %s",
		e.Machine, len(e.Errors), strings.Join(parts, "; "))
}
