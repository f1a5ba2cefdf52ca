package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/amc/internal/am"
)

// Validation error codes (E200-E299)
const (
	// General validation errors (E200)
	ErrUnsupportedInput = "E200" // unsupported input, condition or instruction type

	// Controller errors (E201-E204)
	ErrMalformedController  = "E201" // state carries other than one instruction
	ErrStateOutOfRange      = "E202" // target state index out of range
	ErrConditionOutOfRange  = "E203" // condition index out of range
	ErrTransitionOutOfRange = "E204" // transition index out of range

	// Declaration errors (E205-E209)
	ErrUnknownPort       = "E205" // condition or rate names an undeclared port
	ErrNonPositiveTokens = "E206" // token threshold or rate must be positive
	ErrDuplicateName     = "E207" // duplicate port/transition name
	ErrEmptyMachine      = "E208" // machine has no states
	ErrDirectionMismatch = "E209" // port used against its declared direction

	// Naming and numbering errors (E210-E211)
	ErrEmptyName     = "E210" // port or predicate without a name
	ErrIndexMismatch = "E211" // State.Index differs from the state's position
)

// ValidationError represents a structural validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks an actor machine against the structural rules the
// analysis and the scheduler rely on.
// Returns all errors found (does not fail-fast). Conditions and
// instructions outside the sealed value types (pointers to them included)
// are reported as E200.
func Validate(v any) []ValidationError {
	switch m := v.(type) {
	case *am.ActorMachine:
		if m == nil {
			break
		}
		return validateMachine(m)
	case am.ActorMachine:
		return validateMachine(&m)
	}
	return []ValidationError{{
		Field:   "type",
		Message: fmt.Sprintf("unsupported input type: %T", v),
		Code:    ErrUnsupportedInput,
	}}
}

func validateMachine(m *am.ActorMachine) []ValidationError {
	var errs []ValidationError

	// E208: a machine needs an initial state
	if len(m.States) == 0 {
		errs = append(errs, ValidationError{
			Field:   "states",
			Message: "at least one state is required",
			Code:    ErrEmptyMachine,
		})
	}

	errs = append(errs, validatePorts(m)...)
	errs = append(errs, validateConditions(m)...)
	errs = append(errs, validateTransitions(m)...)
	errs = append(errs, validateStates(m)...)

	return errs
}

func validatePorts(m *am.ActorMachine) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)

	for i, p := range m.Ports {
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("ports[%d].name", i),
				Message: "port name is required",
				Code:    ErrEmptyName,
			})
		}
		// E207: duplicate port name
		if seen[p.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("ports[%d].name", i),
				Message: fmt.Sprintf("duplicate port name: %q", p.Name),
				Code:    ErrDuplicateName,
			})
		}
		seen[p.Name] = true

		if !am.ValidDirections[p.Direction] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("ports[%d].direction", i),
				Message: fmt.Sprintf("invalid direction %q, must be \"input\" or \"output\"", p.Direction),
				Code:    ErrDirectionMismatch,
			})
		}
	}

	return errs
}

func validateConditions(m *am.ActorMachine) []ValidationError {
	var errs []ValidationError

	for i, c := range m.Conditions {
		switch cond := c.(type) {
		case am.PredicateCondition:
			if strings.TrimSpace(cond.Name) == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("conditions[%d].predicate", i),
					Message: "predicate name is required",
					Code:    ErrEmptyName,
				})
			}
		case am.PortCondition:
			field := fmt.Sprintf("conditions[%d]", i)
			port, _, ok := m.Port(cond.Port)
			// E205: unknown port
			if !ok {
				errs = append(errs, ValidationError{
					Field:   field + ".port",
					Message: fmt.Sprintf("unknown port %q", cond.Port),
					Code:    ErrUnknownPort,
				})
			} else if cond.Direction != port.Direction {
				// E209: direction mismatch
				errs = append(errs, ValidationError{
					Field:   field + ".direction",
					Message: fmt.Sprintf("condition direction %q does not match port %q (%s)", cond.Direction, cond.Port, port.Direction),
					Code:    ErrDirectionMismatch,
				})
			}
			// E206: non-positive threshold
			if cond.Tokens <= 0 {
				errs = append(errs, ValidationError{
					Field:   field + ".tokens",
					Message: fmt.Sprintf("token threshold must be positive, got %d", cond.Tokens),
					Code:    ErrNonPositiveTokens,
				})
			}
		default:
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("conditions[%d]", i),
				Message: fmt.Sprintf("unsupported condition type %T", c),
				Code:    ErrUnsupportedInput,
			})
		}
	}

	return errs
}

func validateTransitions(m *am.ActorMachine) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)

	for i, t := range m.Transitions {
		// E207: duplicate transition name (unnamed transitions are fine)
		if t.Name != "" {
			if seen[t.Name] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("transitions[%d].name", i),
					Message: fmt.Sprintf("duplicate transition name: %q", t.Name),
					Code:    ErrDuplicateName,
				})
			}
			seen[t.Name] = true
		}

		errs = append(errs, validateRates(m, fmt.Sprintf("transitions[%d].consumes", i), t.Consumes, am.Input)...)
		errs = append(errs, validateRates(m, fmt.Sprintf("transitions[%d].produces", i), t.Produces, am.Output)...)
	}

	return errs
}

// validateRates checks a per-firing token map against the declared ports.
// Keys are visited in sorted order so output is stable.
func validateRates(m *am.ActorMachine, field string, rates map[string]int, want am.Direction) []ValidationError {
	var errs []ValidationError
	if len(rates) == 0 {
		return errs
	}

	for _, name := range sortedKeys(rates) {
		n := rates[name]
		port, _, ok := m.Port(name)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.%s", field, name),
				Message: fmt.Sprintf("unknown port %q", name),
				Code:    ErrUnknownPort,
			})
		} else if port.Direction != want {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.%s", field, name),
				Message: fmt.Sprintf("port %q is %s, expected %s", name, port.Direction, want),
				Code:    ErrDirectionMismatch,
			})
		}
		if n <= 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.%s", field, name),
				Message: fmt.Sprintf("token rate must be positive, got %d", n),
				Code:    ErrNonPositiveTokens,
			})
		}
	}

	return errs
}

func validateStates(m *am.ActorMachine) []ValidationError {
	var errs []ValidationError

	checkState := func(field string, target int) {
		if _, ok := m.State(target); !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("target state %d out of range [0,%d)", target, len(m.States)),
				Code:    ErrStateOutOfRange,
			})
		}
	}

	for i, s := range m.States {
		field := fmt.Sprintf("states[%d]", i)

		if s.Index != i {
			errs = append(errs, ValidationError{
				Field:   field + ".index",
				Message: fmt.Sprintf("state index %d does not match position %d", s.Index, i),
				Code:    ErrIndexMismatch,
			})
		}

		// E201: exactly one instruction per state
		if len(s.Instructions) != 1 {
			errs = append(errs, ValidationError{
				Field:   field + ".instructions",
				Message: fmt.Sprintf("malformed controller: state %d has %d instructions, expected 1", i, len(s.Instructions)),
				Code:    ErrMalformedController,
			})
		}

		for j, instr := range s.Instructions {
			ifield := fmt.Sprintf("%s.instructions[%d]", field, j)
			switch in := instr.(type) {
			case am.Test:
				if _, ok := m.Condition(in.Condition); !ok {
					errs = append(errs, ValidationError{
						Field:   ifield + ".condition",
						Message: fmt.Sprintf("condition %d out of range [0,%d)", in.Condition, len(m.Conditions)),
						Code:    ErrConditionOutOfRange,
					})
				}
				checkState(ifield+".when_true", in.WhenTrue)
				checkState(ifield+".when_false", in.WhenFalse)
			case am.Exec:
				if _, ok := m.Transition(in.Transition); !ok {
					errs = append(errs, ValidationError{
						Field:   ifield + ".transition",
						Message: fmt.Sprintf("transition %d out of range [0,%d)", in.Transition, len(m.Transitions)),
						Code:    ErrTransitionOutOfRange,
					})
				}
				checkState(ifield+".next", in.Next)
			case am.Wait:
				checkState(ifield+".next", in.Next)
			default:
				errs = append(errs, ValidationError{
					Field:   ifield,
					Message: fmt.Sprintf("unsupported instruction type %T", instr),
					Code:    ErrUnsupportedInput,
				})
			}
		}
	}

	return errs
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
