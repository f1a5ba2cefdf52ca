package am

import (
	"encoding/json"
	"fmt"
)

// Wire form: sum types are encoded as objects with a "kind" discriminator.
//
//	{"kind":"test","condition":0,"when_true":1,"when_false":2}
//	{"kind":"port","port":"in","direction":"input","tokens":1}

type wireInstruction struct {
	Kind       InstructionKind `json:"kind"`
	Condition  int             `json:"condition"`
	WhenTrue   int             `json:"when_true"`
	WhenFalse  int             `json:"when_false"`
	Transition int             `json:"transition"`
	Next       int             `json:"next"`
}

type wireCondition struct {
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Port      string    `json:"port"`
	Direction Direction `json:"direction"`
	Tokens    int       `json:"tokens"`
}

// MarshalInstruction encodes an instruction with its kind discriminator.
func MarshalInstruction(i Instruction) ([]byte, error) {
	switch in := i.(type) {
	case Test:
		return json.Marshal(map[string]any{
			"kind":       KindTest,
			"condition":  in.Condition,
			"when_true":  in.WhenTrue,
			"when_false": in.WhenFalse,
		})
	case Exec:
		return json.Marshal(map[string]any{
			"kind":       KindExec,
			"transition": in.Transition,
			"next":       in.Next,
		})
	case Wait:
		return json.Marshal(map[string]any{
			"kind": KindWait,
			"next": in.Next,
		})
	default:
		return nil, fmt.Errorf("marshal instruction: unsupported type %T", i)
	}
}

// UnmarshalInstruction decodes an instruction from its wire form.
func UnmarshalInstruction(data []byte) (Instruction, error) {
	var w wireInstruction
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal instruction: %w", err)
	}
	switch w.Kind {
	case KindTest:
		return Test{Condition: w.Condition, WhenTrue: w.WhenTrue, WhenFalse: w.WhenFalse}, nil
	case KindExec:
		return Exec{Transition: w.Transition, Next: w.Next}, nil
	case KindWait:
		return Wait{Next: w.Next}, nil
	default:
		return nil, fmt.Errorf("unmarshal instruction: unknown kind %q", w.Kind)
	}
}

// MarshalCondition encodes a condition with its kind discriminator.
func MarshalCondition(c Condition) ([]byte, error) {
	switch cond := c.(type) {
	case PredicateCondition:
		return json.Marshal(map[string]any{
			"kind": "predicate",
			"name": cond.Name,
		})
	case PortCondition:
		m := map[string]any{
			"kind":      "port",
			"port":      cond.Port,
			"direction": cond.Direction,
			"tokens":    cond.Tokens,
		}
		if cond.Name != "" {
			m["name"] = cond.Name
		}
		return json.Marshal(m)
	default:
		return nil, fmt.Errorf("marshal condition: unsupported type %T", c)
	}
}

// UnmarshalCondition decodes a condition from its wire form.
func UnmarshalCondition(data []byte) (Condition, error) {
	var w wireCondition
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal condition: %w", err)
	}
	switch w.Kind {
	case "predicate":
		return PredicateCondition{Name: w.Name}, nil
	case "port":
		return PortCondition{Name: w.Name, Port: w.Port, Direction: w.Direction, Tokens: w.Tokens}, nil
	default:
		return nil, fmt.Errorf("unmarshal condition: unknown kind %q", w.Kind)
	}
}

// MarshalJSON encodes a state with tagged instructions.
func (s State) MarshalJSON() ([]byte, error) {
	instrs := make([]json.RawMessage, len(s.Instructions))
	for i, in := range s.Instructions {
		b, err := MarshalInstruction(in)
		if err != nil {
			return nil, fmt.Errorf("state %d: %w", s.Index, err)
		}
		instrs[i] = b
	}
	return json.Marshal(struct {
		Index        int               `json:"index"`
		Instructions []json.RawMessage `json:"instructions"`
	}{s.Index, instrs})
}

// UnmarshalJSON decodes a state with tagged instructions.
func (s *State) UnmarshalJSON(data []byte) error {
	var w struct {
		Index        int               `json:"index"`
		Instructions []json.RawMessage `json:"instructions"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.Index = w.Index
	s.Instructions = make([]Instruction, 0, len(w.Instructions))
	for _, raw := range w.Instructions {
		in, err := UnmarshalInstruction(raw)
		if err != nil {
			return fmt.Errorf("state %d: %w", w.Index, err)
		}
		s.Instructions = append(s.Instructions, in)
	}
	return nil
}

// machineAlias avoids MarshalJSON recursion.
type machineAlias struct {
	Name        string            `json:"name"`
	Ports       []Port            `json:"ports"`
	Conditions  []json.RawMessage `json:"conditions"`
	Transitions []Transition      `json:"transitions"`
	States      []State           `json:"states"`
}

// MarshalJSON encodes the machine with tagged conditions.
func (m ActorMachine) MarshalJSON() ([]byte, error) {
	conds := make([]json.RawMessage, len(m.Conditions))
	for i, c := range m.Conditions {
		b, err := MarshalCondition(c)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		conds[i] = b
	}
	return json.Marshal(machineAlias{
		Name:        m.Name,
		Ports:       nonNil(m.Ports),
		Conditions:  conds,
		Transitions: nonNil(m.Transitions),
		States:      nonNil(m.States),
	})
}

// UnmarshalJSON decodes a machine with tagged conditions.
func (m *ActorMachine) UnmarshalJSON(data []byte) error {
	var w machineAlias
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.Name = w.Name
	m.Ports = w.Ports
	m.Transitions = w.Transitions
	m.States = w.States
	m.Conditions = make([]Condition, 0, len(w.Conditions))
	for i, raw := range w.Conditions {
		c, err := UnmarshalCondition(raw)
		if err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
		m.Conditions = append(m.Conditions, c)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
