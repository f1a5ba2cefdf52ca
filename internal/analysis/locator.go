package analysis

import (
	"fmt"
	"slices"

	"github.com/roach88/amc/internal/am"
)

// StartStates returns the sorted set of states where a fresh decision
// begins: every in-range Next target of an Exec or a Wait.
//
// A state with other than one instruction is reported as a malformed
// controller (A001) and contributes no targets.
func StartStates(actx *Context) []int {
	m := actx.Machine
	seen := make(map[int]bool)

	for i, s := range m.States {
		instr, ok := s.Instruction()
		if !ok {
			actx.fatal(CodeMalformedController, i,
				fmt.Sprintf("malformed controller: state %d has %d instructions, expected 1", i, len(s.Instructions)))
			continue
		}

		next := -1
		switch in := instr.(type) {
		case am.Test:
			// decisions continue; not a start
		case am.Exec:
			next = in.Next
		case am.Wait:
			next = in.Next
		default:
			panic(fmt.Sprintf("analysis: unsupported instruction type %T", instr))
		}

		if _, ok := m.State(next); ok {
			seen[next] = true
		}
	}

	starts := make([]int, 0, len(seen))
	for s := range seen {
		starts = append(starts, s)
	}
	slices.Sort(starts)
	return starts
}
