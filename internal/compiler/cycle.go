package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/amc/internal/am"
)

// LivelockWarning reports a control-flow cycle that contains no Wait and
// that no port condition can leave.
//
// Such cycles are warnings, not errors: predicates may change as the
// actions on the cycle fire, but tokens arriving from or leaving to other
// actors never end them. A step that stays on one is ended by the
// scheduler's op budget.
type LivelockWarning struct {
	Machine string `json:"machine"`
	States  []int  `json:"states"`  // SCC members, ascending
	Path    []int  `json:"path"`    // one traversal: [1, 2, 1]
	Message string `json:"message"` // Human-readable description
	Level   string `json:"level"`   // "warning"
}

// AnalyzeLivelocks finds Wait-free cycles in a machine's controller.
//
// The algorithm:
//  1. Build the state graph. Test contributes both targets, Exec its next
//     state, Wait nothing (it always suspends).
//  2. Use Tarjan's algorithm to find strongly connected components.
//  3. Report each SCC with size > 1 or a self-loop, unless a Test on a
//     port condition inside it has a branch leaving it. Draining an input
//     or filling an output ends such a loop, as in a filter that fires
//     once per token.
//
// Malformed states, unsupported instruction types and out-of-range targets
// contribute no edges; Validate reports those. Warnings are ordered by their smallest state.
func AnalyzeLivelocks(m *am.ActorMachine) []LivelockWarning {
	if m == nil || len(m.States) == 0 {
		return []LivelockWarning{}
	}

	graph := buildStateGraph(m)
	sccs := tarjanSCC(graph)

	warnings := []LivelockWarning{}
	for _, scc := range sccs {
		if len(scc) == 1 && !hasSelfLoop(scc[0], graph) {
			continue
		}
		if hasPortExit(m, scc, graph) {
			continue
		}
		warnings = append(warnings, livelockToWarning(m, scc, graph))
	}

	slices.SortFunc(warnings, func(a, b LivelockWarning) int {
		return a.States[0] - b.States[0]
	})
	return warnings
}

// hasPortExit reports whether some state of scc tests a port condition and
// has a successor outside scc.
func hasPortExit(m *am.ActorMachine, scc []int, graph stateGraph) bool {
	for _, s := range scc {
		instr, ok := m.States[s].Instruction()
		if !ok {
			continue
		}
		t, ok := instr.(am.Test)
		if !ok || t.Condition < 0 || t.Condition >= len(m.Conditions) {
			continue
		}
		if _, ok := m.Conditions[t.Condition].(am.PortCondition); !ok {
			continue
		}
		for _, n := range graph[s] {
			if !slices.Contains(scc, n) {
				return true
			}
		}
	}
	return false
}

// stateGraph maps state index → successor state indices that are reached
// without suspending.
type stateGraph [][]int

func buildStateGraph(m *am.ActorMachine) stateGraph {
	graph := make(stateGraph, len(m.States))

	for i, s := range m.States {
		instr, ok := s.Instruction()
		if !ok {
			continue
		}
		var next []int
		switch in := instr.(type) {
		case am.Test:
			next = []int{in.WhenTrue, in.WhenFalse}
		case am.Exec:
			next = []int{in.Next}
		case am.Wait:
			// suspends
		}
		for _, n := range next {
			if n >= 0 && n < len(m.States) && !slices.Contains(graph[i], n) {
				graph[i] = append(graph[i], n)
			}
		}
	}

	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node int, graph stateGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, each sorted ascending.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph stateGraph) [][]int {
	var (
		index   = 0
		stack   []int
		indices = make([]int, len(graph))
		lowlink = make([]int, len(graph))
		onStack = make([]bool, len(graph))
		sccs    [][]int
	)
	for i := range indices {
		indices[i] = -1
	}

	var strongConnect func(int)
	strongConnect = func(v int) {
		// Set the depth index for v
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		// Consider successors of v
		for _, w := range graph[v] {
			if indices[w] < 0 {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	for node := range graph {
		if indices[node] < 0 {
			strongConnect(node)
		}
	}

	return sccs
}

// livelockToWarning converts an SCC to a LivelockWarning.
func livelockToWarning(m *am.ActorMachine, scc []int, graph stateGraph) LivelockWarning {
	path := reconstructCyclePath(scc, graph)

	parts := make([]string, len(path))
	for i, s := range path {
		parts[i] = fmt.Sprintf("S%d", s)
	}

	msg := fmt.Sprintf("Wait-free cycle: %s", strings.Join(parts, " → "))
	if len(scc) == 1 {
		msg = fmt.Sprintf("Wait-free self-loop at S%d", scc[0])
	}
	if fired := cycleTransitions(m, scc); len(fired) > 0 {
		msg += fmt.Sprintf(" (fires %s)", strings.Join(fired, ", "))
	}

	return LivelockWarning{
		Machine: m.Name,
		States:  scc,
		Path:    path,
		Message: msg,
		Level:   "warning",
	}
}

// cycleTransitions names the transitions executed inside an SCC.
func cycleTransitions(m *am.ActorMachine, scc []int) []string {
	var names []string
	for _, s := range scc {
		instr, ok := m.States[s].Instruction()
		if !ok {
			continue
		}
		if ex, isExec := instr.(am.Exec); isExec {
			names = append(names, m.TransitionName(ex.Transition))
		}
	}
	return names
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at the smallest node, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []int, graph stateGraph) []int {
	if len(scc) == 0 {
		return []int{}
	}

	start := scc[0]
	current := start
	path := []int{current}
	visited := make(map[int]bool)

	for {
		visited[current] = true

		next := -1
		for _, neighbor := range graph[current] {
			if slices.Contains(scc, neighbor) && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next < 0 {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
