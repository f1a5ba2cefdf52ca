package scheduler

import (
	"context"
	"fmt"

	"github.com/roach88/amc/internal/am"
)

// Outcome is the result kind of one Step.
type Outcome string

const (
	// OutcomeProgress means at least one transition fired before the
	// instance suspended.
	OutcomeProgress Outcome = "progress"

	// OutcomeBlocked means nothing fired; Blocked says why.
	OutcomeBlocked Outcome = "blocked"

	// OutcomeTerminal means the instance reached a Wait on its own state
	// and can never progress again.
	OutcomeTerminal Outcome = "terminal"
)

// ConditionFunc evaluates one condition of the machine.
type ConditionFunc func() bool

// ActionFunc performs one transition: channel I/O and state mutation.
type ActionFunc func(ctx context.Context) error

// TokenCounter reports what a port currently offers: available tokens on
// an input port, free slots on an output port.
type TokenCounter interface {
	Available(port string, dir am.Direction) int
}

// Bindings supply the externally registered behavior of an instance,
// indexed like the machine's conditions and transitions.
type Bindings struct {
	Conditions []ConditionFunc
	Actions    []ActionFunc

	// Tokens is optional. When set, blockage deficits are exact;
	// otherwise the deficit is the full threshold.
	Tokens TokenCounter
}

// Firing records one executed transition.
type Firing struct {
	Transition int    `json:"transition"`
	Name       string `json:"name"`
	Seq        int64  `json:"seq"`
}

// Blockage says what must change on a port before the instance can take
// the true branch of a port test.
type Blockage struct {
	Port      string       `json:"port"`
	PortIndex int          `json:"port_index"`
	Direction am.Direction `json:"direction"`
	Deficit   int          `json:"deficit"`
}

// StepResult is the outcome of one invocation.
type StepResult struct {
	Outcome Outcome    `json:"outcome"`
	Firings []Firing   `json:"firings"`
	Blocked []Blockage `json:"blocked"`
	PC      int        `json:"pc"`
}

// Instance is one running copy of a Program. It owns its program counter
// and is not safe for concurrent Steps.
type Instance struct {
	id       string
	prog     *Program
	bindings Bindings
	pc       int
	seq      Sequencer
}

// InstanceOption configures NewInstance.
type InstanceOption func(*Instance)

// WithSequencer sets the clock that stamps firings. Default: a fresh Clock.
func WithSequencer(s Sequencer) InstanceOption {
	return func(i *Instance) {
		i.seq = s
	}
}

// NewInstance creates an instance positioned at the entry state.
// Bindings must cover every condition and transition of the machine.
func (p *Program) NewInstance(id string, b Bindings, opts ...InstanceOption) (*Instance, error) {
	m := p.machine
	if len(b.Conditions) != len(m.Conditions) {
		return nil, fmt.Errorf("instance %s: %d condition bindings for %d conditions", id, len(b.Conditions), len(m.Conditions))
	}
	if len(b.Actions) != len(m.Transitions) {
		return nil, fmt.Errorf("instance %s: %d action bindings for %d transitions", id, len(b.Actions), len(m.Transitions))
	}
	for i, f := range b.Conditions {
		if f == nil {
			return nil, fmt.Errorf("instance %s: condition %d is not bound", id, i)
		}
	}
	for i, f := range b.Actions {
		if f == nil {
			return nil, fmt.Errorf("instance %s: action %s is not bound", id, m.TransitionName(i))
		}
	}

	inst := &Instance{
		id:       id,
		prog:     p,
		bindings: b,
		pc:       p.Entry(),
	}
	for _, opt := range opts {
		opt(inst)
	}
	if inst.seq == nil {
		inst.seq = NewClock()
	}
	return inst, nil
}

// ID returns the instance ID.
func (i *Instance) ID() string {
	return i.id
}

// PC returns the current program counter.
func (i *Instance) PC() int {
	return i.pc
}

// Program returns the program the instance runs.
func (i *Instance) Program() *Program {
	return i.prog
}

// Restore sets the program counter, e.g. from a persisted checkpoint.
// The counter must pass Program.Resumable or Program.Recoverable.
func (i *Instance) Restore(pc int) error {
	if !i.prog.validPC(pc) {
		return NewInvalidPCError(i.id, pc)
	}
	i.pc = pc
	return nil
}

// Step runs the instance from its program counter until it suspends.
//
// On an action or quota error the result carries the firings made before
// the failure, and the program counter moves to the Next state of the last
// of them (or stays at the entry when nothing fired), so a retry does not
// repeat them.
func (i *Instance) Step(ctx context.Context) (StepResult, error) {
	entry := i.pc
	if !i.prog.validPC(entry) {
		return StepResult{PC: entry}, NewInvalidPCError(i.id, entry)
	}

	res := StepResult{Firings: []Firing{}, Blocked: []Blockage{}}
	budget := newOpBudget(i.prog.maxOps)
	state := entry
	resumeAt := entry

	fail := func(err error) (StepResult, error) {
		i.pc = resumeAt
		res.PC = resumeAt
		return res, err
	}

	for {
		if !budget.check() {
			return fail(NewQuotaError(i.id, state, budget.used, budget.max))
		}

		o := i.prog.ops[state]
		switch o.kind {
		case opTest:
			if i.bindings.Conditions[o.condition]() {
				state = o.whenTrue
				continue
			}
			if o.block != nil {
				res.Blocked = i.addBlockage(res.Blocked, o.block)
			}
			state = o.whenFalse

		case opExec:
			name := i.prog.machine.TransitionName(o.transition)
			if err := i.bindings.Actions[o.transition](ctx); err != nil {
				return fail(NewActionError(i.id, state, name, err))
			}
			res.Firings = append(res.Firings, Firing{
				Transition: o.transition,
				Name:       name,
				Seq:        i.seq.Next(),
			})
			state = o.next
			resumeAt = o.next

		case opWait:
			i.pc = o.next
			res.PC = o.next
			switch {
			case o.next == state:
				res.Outcome = OutcomeTerminal
			case len(res.Firings) > 0:
				res.Outcome = OutcomeProgress
			default:
				res.Outcome = OutcomeBlocked
			}
			return res, nil

		default:
			panic(fmt.Sprintf("scheduler: unknown op kind %d", o.kind))
		}
	}
}

// addBlockage records a failed port test once per port and direction.
func (i *Instance) addBlockage(blocked []Blockage, bp *backpressure) []Blockage {
	for _, b := range blocked {
		if b.Port == bp.port && b.Direction == bp.direction {
			return blocked
		}
	}
	return append(blocked, Blockage{
		Port:      bp.port,
		PortIndex: bp.portIndex,
		Direction: bp.direction,
		Deficit:   i.deficit(bp),
	})
}

// deficit is how many more tokens (input) or free slots (output) the port
// needs. Without a TokenCounter it is the full threshold. Never below 1:
// the test just failed.
func (i *Instance) deficit(bp *backpressure) int {
	d := bp.threshold
	if i.bindings.Tokens != nil {
		d = bp.threshold - i.bindings.Tokens.Available(bp.port, bp.direction)
	}
	return max(d, 1)
}
