package am

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainMachine is the domain prefix for machine identity hashes.
// The version suffix allows a future algorithm migration.
const DomainMachine = "amc/machine/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// MachineHash computes the content-addressed identity of a machine.
// Two machines hash equal iff their canonical renderings are identical, so
// the hash is stable across processes and field ordering.
func MachineHash(m *ActorMachine) (string, error) {
	tree, err := canonicalTree(m)
	if err != nil {
		return "", fmt.Errorf("MachineHash: %w", err)
	}
	canonical, err := MarshalCanonical(tree)
	if err != nil {
		return "", fmt.Errorf("MachineHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainMachine, canonical), nil
}

// MustMachineHash is like MachineHash but panics on error.
// Use only in tests or when the machine is known to be well-typed.
func MustMachineHash(m *ActorMachine) string {
	h, err := MachineHash(m)
	if err != nil {
		panic(err)
	}
	return h
}

// canonicalTree renders the machine into the generic shapes understood by
// MarshalCanonical.
func canonicalTree(m *ActorMachine) (map[string]any, error) {
	ports := make([]any, len(m.Ports))
	for i, p := range m.Ports {
		ports[i] = map[string]any{"name": p.Name, "direction": string(p.Direction)}
	}

	conds := make([]any, len(m.Conditions))
	for i, c := range m.Conditions {
		switch cond := c.(type) {
		case PredicateCondition:
			conds[i] = map[string]any{"kind": "predicate", "name": cond.Name}
		case PortCondition:
			conds[i] = map[string]any{
				"kind":      "port",
				"name":      cond.Name,
				"port":      cond.Port,
				"direction": string(cond.Direction),
				"tokens":    cond.Tokens,
			}
		default:
			return nil, fmt.Errorf("condition %d: unsupported type %T", i, c)
		}
	}

	transitions := make([]any, len(m.Transitions))
	for i, t := range m.Transitions {
		transitions[i] = map[string]any{
			"name":     t.Name,
			"consumes": rates(t.Consumes),
			"produces": rates(t.Produces),
		}
	}

	states := make([]any, len(m.States))
	for i, s := range m.States {
		instrs := make([]any, len(s.Instructions))
		for j, in := range s.Instructions {
			switch ins := in.(type) {
			case Test:
				instrs[j] = map[string]any{"kind": "test", "condition": ins.Condition, "when_true": ins.WhenTrue, "when_false": ins.WhenFalse}
			case Exec:
				instrs[j] = map[string]any{"kind": "exec", "transition": ins.Transition, "next": ins.Next}
			case Wait:
				instrs[j] = map[string]any{"kind": "wait", "next": ins.Next}
			default:
				return nil, fmt.Errorf("state %d: unsupported instruction %T", i, in)
			}
		}
		states[i] = map[string]any{"index": s.Index, "instructions": instrs}
	}

	return map[string]any{
		"name":        m.Name,
		"ports":       ports,
		"conditions":  conds,
		"transitions": transitions,
		"states":      states,
	}, nil
}

func rates(r map[string]int) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
