package scheduler

import (
	"context"

	"github.com/roach88/amc/internal/am"
)

// env is an in-memory stand-in for the channels and actor state around one
// instance. Port conditions read tokens; actions apply the transition's
// rates and log the firing.
type env struct {
	tokens     map[string]int
	predicates map[string]bool
	fired      []string
	fail       map[string]error
}

func newEnv() *env {
	return &env{
		tokens:     map[string]int{},
		predicates: map[string]bool{},
		fail:       map[string]error{},
	}
}

func (e *env) Available(port string, _ am.Direction) int {
	return e.tokens[port]
}

func (e *env) bindings(m *am.ActorMachine) Bindings {
	var b Bindings
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
		}
	}
	for i, t := range m.Transitions {
		t := t
		name := m.TransitionName(i)
		b.Actions = append(b.Actions, func(context.Context) error {
			if err := e.fail[name]; err != nil {
				return err
			}
			for port, n := range t.Consumes {
				e.tokens[port] -= n
			}
			for port, n := range t.Produces {
				e.tokens[port] -= n // free slots on the output side
			}
			e.fired = append(e.fired, name)
			return nil
		})
	}
	b.Tokens = e
	return b
}
