package am

import (
	"fmt"
	"strconv"
)

// Port is a declared channel endpoint of an actor.
type Port struct {
	Name      string    `json:"name"`
	Direction Direction `json:"direction"`
}

// Transition is an atomic unit of work. The core algorithms treat it as
// opaque beyond its index; the token rates are carried for tooling.
type Transition struct {
	Name     string         `json:"name"`
	Consumes map[string]int `json:"consumes,omitempty"` // port name -> tokens per firing
	Produces map[string]int `json:"produces,omitempty"` // port name -> tokens per firing
}

// State is a controller state. Well-formed states carry exactly one
// instruction; the slice keeps violations from the upstream pass visible.
type State struct {
	Index        int           `json:"index"`
	Instructions []Instruction `json:"instructions"`
}

// Instruction returns the single instruction of a well-formed state.
// ok is false when the state carries zero or several instructions.
func (s State) Instruction() (Instruction, bool) {
	if len(s.Instructions) != 1 {
		return nil, false
	}
	return s.Instructions[0], true
}

// ActorMachine is the compiled control automaton of one actor.
// States[0] is the initial state.
type ActorMachine struct {
	Name        string       `json:"name"`
	Ports       []Port       `json:"ports"`
	Conditions  []Condition  `json:"conditions"`
	Transitions []Transition `json:"transitions"`
	States      []State      `json:"states"`
}

// InitialState is the index every fresh instance starts from.
const InitialState = 0

// State returns the state at index i.
func (m *ActorMachine) State(i int) (State, bool) {
	if i < 0 || i >= len(m.States) {
		return State{}, false
	}
	return m.States[i], true
}

// Condition returns the condition at index i.
func (m *ActorMachine) Condition(i int) (Condition, bool) {
	if i < 0 || i >= len(m.Conditions) {
		return nil, false
	}
	return m.Conditions[i], true
}

// Transition returns the transition at index i.
func (m *ActorMachine) Transition(i int) (Transition, bool) {
	if i < 0 || i >= len(m.Transitions) {
		return Transition{}, false
	}
	return m.Transitions[i], true
}

// TransitionName returns the transition name, or "t<i>" when unnamed or
// out of range.
func (m *ActorMachine) TransitionName(i int) string {
	if t, ok := m.Transition(i); ok && t.Name != "" {
		return t.Name
	}
	return "t" + strconv.Itoa(i)
}

// Port looks up a declared port by name.
func (m *ActorMachine) Port(name string) (Port, int, bool) {
	for i, p := range m.Ports {
		if p.Name == name {
			return p, i, true
		}
	}
	return Port{}, -1, false
}

// ConditionIndex finds a condition by its label.
func (m *ActorMachine) ConditionIndex(label string) (int, bool) {
	for i, c := range m.Conditions {
		if c.Label() == label {
			return i, true
		}
	}
	return -1, false
}

// TransitionIndex finds a transition by name.
func (m *ActorMachine) TransitionIndex(name string) (int, bool) {
	for i, t := range m.Transitions {
		if t.Name == name {
			return i, true
		}
	}
	return -1, false
}

// CheckShapes returns an error for the first condition or instruction that
// is not one of the value types of this package. Pointers to them satisfy
// the sealed interfaces but are not supported.
func CheckShapes(m *ActorMachine) error {
	for i, c := range m.Conditions {
		switch c.(type) {
		case PortCondition, PredicateCondition:
		default:
			return fmt.Errorf("machine %s: condition %d: unsupported type %T", m.Name, i, c)
		}
	}
	for _, s := range m.States {
		for _, in := range s.Instructions {
			switch in.(type) {
			case Test, Exec, Wait:
			default:
				return fmt.Errorf("machine %s: state %d: unsupported instruction type %T", m.Name, s.Index, in)
			}
		}
	}
	return nil
}
