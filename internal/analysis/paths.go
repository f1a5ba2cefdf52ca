package analysis

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/amc/internal/am"
)

// Decision is one resolved Test along a selection path.
type Decision struct {
	Condition int  `json:"condition"`
	Value     bool `json:"value"`
}

// SelectionPath records which transition fires under which condition
// assignment, starting from Start.
type SelectionPath struct {
	Start      int        `json:"start"`
	Decisions  []Decision `json:"decisions"`
	Transition int        `json:"transition"`
}

// String renders the path as "S0: c0=T c1=F -> t1".
func (p SelectionPath) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "S%d:", p.Start)
	for _, d := range p.Decisions {
		v := "F"
		if d.Value {
			v = "T"
		}
		fmt.Fprintf(&b, " c%d=%s", d.Condition, v)
	}
	fmt.Fprintf(&b, " -> t%d", p.Transition)
	return b.String()
}

// branch is one pending unit of the depth-first walk.
type branch struct {
	state     int
	decisions []Decision
	visited   []int // states on this branch, start included
}

// EnumeratePaths walks every Test chain from start and returns one path
// per reachable Exec. A Wait ends its branch without a path.
//
// The walk is depth-first on an explicit stack. At a Test the true branch
// is explored before the false branch, so paths come out true-first.
//
// Malformed states and out-of-range targets end their branch silently;
// StartStates and Validate report those. A branch that comes back to a
// state it already passed is a decision loop: it is reported once per
// start state (A003) and abandoned.
func EnumeratePaths(actx *Context, start int) []SelectionPath {
	m := actx.Machine
	var paths []SelectionPath
	loopReported := false

	stack := []branch{{state: start, visited: []int{start}}}
	for len(stack) > 0 {
		br := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		s, ok := m.State(br.state)
		if !ok {
			continue
		}
		instr, ok := s.Instruction()
		if !ok {
			continue
		}

		switch in := instr.(type) {
		case am.Exec:
			paths = append(paths, SelectionPath{
				Start:      start,
				Decisions:  br.decisions,
				Transition: in.Transition,
			})
		case am.Wait:
			// nothing can fire on this branch
		case am.Test:
			// Pushed false first so the true branch pops first.
			for _, next := range []struct {
				state int
				value bool
			}{{in.WhenFalse, false}, {in.WhenTrue, true}} {
				if slices.Contains(br.visited, next.state) {
					if !loopReported {
						actx.fatal(CodeDecisionLoop, start,
							fmt.Sprintf("decision loop: S%d returns to S%d without firing", br.state, next.state))
						loopReported = true
					}
					continue
				}
				stack = append(stack, branch{
					state:     next.state,
					decisions: extend(br.decisions, Decision{Condition: in.Condition, Value: next.value}),
					visited:   extend(br.visited, next.state),
				})
			}
		default:
			panic(fmt.Sprintf("analysis: unsupported instruction type %T", instr))
		}
	}

	return paths
}

// extend returns a fresh slice holding s followed by v, so sibling
// branches never share a backing array.
func extend[T any](s []T, v T) []T {
	out := make([]T, len(s), len(s)+1)
	copy(out, s)
	return append(out, v)
}
