package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/amc/internal/am"
)

// CompileMachine parses a CUE value into an ActorMachine.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
//
// The CUE value should be the machine struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`machine: Filter: { ... }`)
//	m, err := CompileMachine(v.LookupPath(cue.ParsePath("machine.Filter")))
//
// Structural problems that the upstream lowering pass is supposed to rule
// out (a state with zero or several instructions, dangling indices) are NOT
// compile errors: they are carried into the model so Validate and the
// analysis can report them with their own codes.
func CompileMachine(v cue.Value) (*am.ActorMachine, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &am.ActorMachine{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		m.Name = unquote(labels[len(labels)-1].String())
	}

	var err error
	m.Ports, err = parsePorts(v)
	if err != nil {
		return nil, err
	}

	m.Conditions, err = parseConditions(v, m.Ports)
	if err != nil {
		return nil, err
	}

	m.Transitions, err = parseTransitions(v)
	if err != nil {
		return nil, err
	}

	m.States, err = parseStates(v)
	if err != nil {
		return nil, err
	}
	if len(m.States) == 0 {
		return nil, &CompileError{
			Field:   "states",
			Message: "at least one state is required",
			Pos:     v.Pos(),
		}
	}

	return m, nil
}

// parsePorts extracts port declarations in declaration order.
func parsePorts(v cue.Value) ([]am.Port, error) {
	var ports []am.Port

	portsVal := v.LookupPath(cue.ParsePath("ports"))
	if !portsVal.Exists() {
		return ports, nil // an actor may have no ports
	}

	iter, err := portsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := unquote(iter.Label())
		dirVal := iter.Value().LookupPath(cue.ParsePath("direction"))
		if !dirVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("ports.%s.direction", name),
				Message: "port direction is required",
				Pos:     iter.Value().Pos(),
			}
		}
		dir, err := dirVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if !am.ValidDirections[am.Direction(dir)] {
			return nil, &CompileError{
				Field:   fmt.Sprintf("ports.%s.direction", name),
				Message: fmt.Sprintf("invalid direction %q, must be \"input\" or \"output\"", dir),
				Pos:     dirVal.Pos(),
			}
		}
		ports = append(ports, am.Port{Name: name, Direction: am.Direction(dir)})
	}

	return ports, nil
}

// parseConditions extracts the ordered condition list.
// Each entry is either {predicate: "name"} or {port: "p", tokens: N}.
// A port condition takes its direction from the port declaration; an
// unknown port is left with an empty direction for Validate to report.
func parseConditions(v cue.Value, ports []am.Port) ([]am.Condition, error) {
	var conds []am.Condition

	condsVal := v.LookupPath(cue.ParsePath("conditions"))
	if !condsVal.Exists() {
		return conds, nil
	}

	iter, err := condsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		cv := iter.Value()
		field := fmt.Sprintf("conditions[%d]", i)

		predVal := cv.LookupPath(cue.ParsePath("predicate"))
		portVal := cv.LookupPath(cue.ParsePath("port"))

		switch {
		case predVal.Exists() && portVal.Exists():
			return nil, &CompileError{
				Field:   field,
				Message: "condition must be either a predicate or a port condition, not both",
				Pos:     cv.Pos(),
			}
		case predVal.Exists():
			name, err := predVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			conds = append(conds, am.PredicateCondition{Name: name})
		case portVal.Exists():
			portName, err := portVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			tokens := 1
			if tv := cv.LookupPath(cue.ParsePath("tokens")); tv.Exists() {
				tokens, err = intValue(tv)
				if err != nil {
					return nil, err
				}
			}
			cond := am.PortCondition{Port: portName, Tokens: tokens}
			for _, p := range ports {
				if p.Name == portName {
					cond.Direction = p.Direction
				}
			}
			if nv := cv.LookupPath(cue.ParsePath("name")); nv.Exists() {
				cond.Name, err = nv.String()
				if err != nil {
					return nil, formatCUEError(err)
				}
			}
			conds = append(conds, cond)
		default:
			return nil, &CompileError{
				Field:   field,
				Message: "condition requires a \"predicate\" or \"port\" field",
				Pos:     cv.Pos(),
			}
		}
	}

	return conds, nil
}

// parseTransitions extracts the ordered transition list with token rates.
func parseTransitions(v cue.Value) ([]am.Transition, error) {
	var transitions []am.Transition

	tVal := v.LookupPath(cue.ParsePath("transitions"))
	if !tVal.Exists() {
		return transitions, nil
	}

	iter, err := tVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		tv := iter.Value()
		t := am.Transition{}

		if nv := tv.LookupPath(cue.ParsePath("name")); nv.Exists() {
			t.Name, err = nv.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
		}

		t.Consumes, err = parseRates(tv.LookupPath(cue.ParsePath("consumes")))
		if err != nil {
			return nil, err
		}
		t.Produces, err = parseRates(tv.LookupPath(cue.ParsePath("produces")))
		if err != nil {
			return nil, err
		}

		transitions = append(transitions, t)
	}

	return transitions, nil
}

// parseRates reads a {port: tokens} struct. Missing means no rates.
func parseRates(v cue.Value) (map[string]int, error) {
	if !v.Exists() {
		return nil, nil
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	rates := make(map[string]int)
	for iter.Next() {
		n, err := intValue(iter.Value())
		if err != nil {
			return nil, err
		}
		rates[unquote(iter.Label())] = n
	}
	return rates, nil
}

// parseStates extracts controller states. Every present field among test,
// exec and wait contributes one instruction, in that order.
func parseStates(v cue.Value) ([]am.State, error) {
	var states []am.State

	sVal := v.LookupPath(cue.ParsePath("states"))
	if !sVal.Exists() {
		return states, nil
	}

	iter, err := sVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		sv := iter.Value()
		state := am.State{Index: i}

		if tv := sv.LookupPath(cue.ParsePath("test")); tv.Exists() {
			cond, err := requiredInt(tv, "condition", fmt.Sprintf("states[%d].test", i))
			if err != nil {
				return nil, err
			}
			whenTrue, err := requiredInt(tv, "when_true", fmt.Sprintf("states[%d].test", i))
			if err != nil {
				return nil, err
			}
			whenFalse, err := requiredInt(tv, "when_false", fmt.Sprintf("states[%d].test", i))
			if err != nil {
				return nil, err
			}
			state.Instructions = append(state.Instructions, am.Test{
				Condition: cond,
				WhenTrue:  whenTrue,
				WhenFalse: whenFalse,
			})
		}

		if ev := sv.LookupPath(cue.ParsePath("exec")); ev.Exists() {
			transition, err := requiredInt(ev, "transition", fmt.Sprintf("states[%d].exec", i))
			if err != nil {
				return nil, err
			}
			next, err := requiredInt(ev, "next", fmt.Sprintf("states[%d].exec", i))
			if err != nil {
				return nil, err
			}
			state.Instructions = append(state.Instructions, am.Exec{Transition: transition, Next: next})
		}

		if wv := sv.LookupPath(cue.ParsePath("wait")); wv.Exists() {
			next, err := requiredInt(wv, "next", fmt.Sprintf("states[%d].wait", i))
			if err != nil {
				return nil, err
			}
			state.Instructions = append(state.Instructions, am.Wait{Next: next})
		}

		states = append(states, state)
	}

	return states, nil
}

// requiredInt reads an integer field that must be present.
func requiredInt(v cue.Value, name, field string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return 0, &CompileError{
			Field:   field + "." + name,
			Message: fmt.Sprintf("%s is required", name),
			Pos:     v.Pos(),
		}
	}
	return intValue(fv)
}

// intValue converts a CUE number to int. Floats are rejected.
func intValue(v cue.Value) (int, error) {
	if v.IncompleteKind() != cue.IntKind {
		return 0, &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("expected integer, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
	n, err := v.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

// unquote strips the quotes CUE keeps on quoted labels.
func unquote(label string) string {
	if len(label) >= 2 && label[0] == '"' && label[len(label)-1] == '"' {
		return label[1 : len(label)-1]
	}
	return label
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// First error with position info wins
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
