package harness

import (
	"context"
	"fmt"

	"github.com/roach88/amc/internal/am"
	"github.com/roach88/amc/internal/scheduler"
)

// env stands in for the channels and actor state around one instance.
// Port conditions and deficits read tokens; actions apply the
// transition's rates.
type env struct {
	tokens     map[string]int
	predicates map[string]bool
	fail       map[string]bool
}

func newEnv() *env {
	return &env{
		tokens:     map[string]int{},
		predicates: map[string]bool{},
		fail:       map[string]bool{},
	}
}

// Available implements scheduler.TokenCounter.
func (e *env) Available(port string, _ am.Direction) int {
	return e.tokens[port]
}

// apply merges a step's settings into the environment.
func (e *env) apply(step Step) {
	for port, n := range step.Tokens {
		e.tokens[port] = n
	}
	for name, v := range step.Predicates {
		e.predicates[name] = v
	}
	clear(e.fail)
	for _, name := range step.Fail {
		e.fail[name] = true
	}
}

// bindings builds scheduler bindings for m backed by e.
func (e *env) bindings(m *am.ActorMachine) scheduler.Bindings {
	b := scheduler.Bindings{Tokens: e}
	for _, c := range m.Conditions {
		switch cond := c.(type) {
		case am.PortCondition:
			b.Conditions = append(b.Conditions, func() bool {
				return e.tokens[cond.Port] >= cond.Tokens
			})
		case am.PredicateCondition:
			b.Conditions = append(b.Conditions, func() bool {
				return e.predicates[cond.Name]
			})
		default:
			panic(fmt.Sprintf("harness: unsupported condition type %T", c))
		}
	}
	for i, t := range m.Transitions {
		t := t
		name := m.TransitionName(i)
		b.Actions = append(b.Actions, func(context.Context) error {
			if e.fail[name] {
				return fmt.Errorf("transition %s failed", name)
			}
			for port, n := range t.Consumes {
				e.tokens[port] -= n
			}
			for port, n := range t.Produces {
				e.tokens[port] -= n
			}
			return nil
		})
	}
	return b
}
