package harness

import (
	"fmt"
	"slices"
	"strings"
)

// ExpectationError describes one mismatch between a step's expect clause
// and what the scheduler did.
type ExpectationError struct {
	Step     int
	Field    string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	return fmt.Sprintf("step %d: %s: expected %s, got %s", e.Step, e.Field, e.Expected, e.Actual)
}

// checkExpect compares one observed step with its expect clause and
// returns every mismatch.
func checkExpect(step int, want *Expect, got TraceEvent) []string {
	var errs []string
	fail := func(field, expected, actual string) {
		errs = append(errs, (&ExpectationError{
			Step:     step,
			Field:    field,
			Expected: expected,
			Actual:   actual,
		}).Error())
	}

	if got.Outcome != want.Outcome {
		actual := got.Outcome
		if got.Error != "" {
			actual = fmt.Sprintf("%s (%s)", got.Outcome, got.Error)
		}
		fail("outcome", want.Outcome, actual)
	}

	if want.Outcome == OutcomeError && want.Error != "" && !strings.Contains(got.Error, want.Error) {
		fail("error", fmt.Sprintf("%q", want.Error), fmt.Sprintf("%q", got.Error))
	}

	if !slices.Equal(want.Fired, got.Fired) {
		fail("fired", formatNames(want.Fired), formatNames(got.Fired))
	}

	if want.PC != nil && *want.PC != got.PC {
		fail("pc", fmt.Sprintf("S%d", *want.PC), fmt.Sprintf("S%d", got.PC))
	}

	if want.Blocked != nil && !slices.Equal(want.Blocked, got.Blocked) {
		fail("blocked", formatBlocks(want.Blocked), formatBlocks(got.Blocked))
	}

	return errs
}

func formatNames(names []string) string {
	return "[" + strings.Join(names, ", ") + "]"
}

func formatBlocks(blocks []PortBlock) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = fmt.Sprintf("%s/%s-%d", b.Port, b.Direction, b.Deficit)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
