package analysis

import (
	"fmt"

	"github.com/roach88/amc/internal/am"
)

// CheckRaces compares every unordered pair of paths from one start state.
//
// For each pair the discriminating condition is the one at the last
// position where both paths still test the same condition index. Only the
// indices are compared, not the resolved values: a machine that re-tests a
// condition index on both sides of an earlier divergence can hide the real
// discriminating point. That approximation is kept deliberately.
//
// A predicate discriminator is safe. A port discriminator is safe only
// when both paths fire the same transition; otherwise a timing-dependent
// warning (A101) names both transitions. A pair with no common prefix is
// an invalid controller (A002); the pair is skipped and checking goes on.
func CheckRaces(actx *Context, start int, paths []SelectionPath) {
	m := actx.Machine

	for i := 0; i < len(paths); i++ {
		for j := i + 1; j < len(paths); j++ {
			p1, p2 := paths[i], paths[j]

			d := lastCommonIndex(p1.Decisions, p2.Decisions)
			if d < 0 {
				actx.fatal(CodeInvalidController, start,
					fmt.Sprintf("invalid controller: paths to %s and %s share no decision",
						m.TransitionName(p1.Transition), m.TransitionName(p2.Transition)))
				continue
			}

			c := p1.Decisions[d].Condition
			cond, ok := m.Condition(c)
			if !ok {
				continue // reported by Validate
			}
			if !am.IsTimeDependent(cond) {
				continue
			}
			if p1.Transition == p2.Transition {
				continue
			}

			actx.Reporter.Report(Diagnostic{
				Severity:    SeverityWarning,
				Code:        CodeTimingDependent,
				Machine:     m.Name,
				StartState:  start,
				Transitions: []int{p1.Transition, p2.Transition},
				Condition:   &c,
				Message: fmt.Sprintf("choice between %s and %s depends on token arrival order (c%d %s)",
					m.TransitionName(p1.Transition), m.TransitionName(p2.Transition), c, cond.Label()),
			})
		}
	}
}

// lastCommonIndex returns the last position, scanning from 0, at which a
// and b test the same condition index, or -1 if position 0 already differs.
func lastCommonIndex(a, b []Decision) int {
	d := -1
	for k := 0; k < len(a) && k < len(b); k++ {
		if a[k].Condition != b[k].Condition {
			break
		}
		d = k
	}
	return d
}
