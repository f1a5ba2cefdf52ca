package scheduler

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/roach88/amc/internal/am"
	"github.com/roach88/amc/internal/compiler"
)

type opKind uint8

const (
	opTest opKind = iota
	opExec
	opWait
)

// backpressure describes what a failed port test is waiting for.
type backpressure struct {
	port      string
	portIndex int
	direction am.Direction
	threshold int
}

// op is one lowered state.
type op struct {
	kind       opKind
	condition  int
	transition int
	whenTrue   int
	whenFalse  int
	next       int
	block      *backpressure // Test on a port condition only
}

// Program is the lowered, resumable form of one actor machine. It is
// immutable and may be shared by any number of instances.
type Program struct {
	machine   *am.ActorMachine
	hash      string
	ops       []op
	resume    []int
	resumable []bool
	recovery  []bool // Next targets of Execs
	maxOps    int
}

// Option configures Synthesize.
type Option func(*Program)

// WithMaxOps sets the op budget of one Step.
//
// Default: 10000 ops (DefaultMaxOps)
// Use WithMaxOps(10) for testing quota enforcement.
func WithMaxOps(n int) Option {
	return func(p *Program) {
		p.maxOps = n
	}
}

// Synthesize lowers m into a Program.
//
// Malformed machines are rejected before lowering: any validation error
// yields a *SynthesisError and no Program.
func Synthesize(m *am.ActorMachine, opts ...Option) (*Program, error) {
	if errs := compiler.Validate(m); len(errs) > 0 {
		name := ""
		if m != nil {
			name = m.Name
		}
		return nil, &SynthesisError{Machine: name, Errors: errs}
	}

	hash, err := am.MachineHash(m)
	if err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", m.Name, err)
	}

	p := &Program{
		machine:   m,
		hash:      hash,
		ops:       make([]op, len(m.States)),
		resume:    []int{},
		resumable: make([]bool, len(m.States)),
		recovery:  make([]bool, len(m.States)),
		maxOps:    DefaultMaxOps,
	}
	for _, opt := range opts {
		opt(p)
	}

	for i, s := range m.States {
		instr, _ := s.Instruction()
		p.ops[i] = lower(m, instr)
		switch in := instr.(type) {
		case am.Wait:
			p.resumable[in.Next] = true
		case am.Exec:
			p.recovery[in.Next] = true
		}
	}

	for i, ok := range p.resumable {
		if ok {
			p.resume = append(p.resume, i)
		}
	}

	return p, nil
}

// lower turns one validated instruction into an op.
func lower(m *am.ActorMachine, instr am.Instruction) op {
	switch in := instr.(type) {
	case am.Test:
		o := op{kind: opTest, condition: in.Condition, whenTrue: in.WhenTrue, whenFalse: in.WhenFalse}
		if pc, ok := m.Conditions[in.Condition].(am.PortCondition); ok {
			_, idx, _ := m.Port(pc.Port)
			o.block = &backpressure{
				port:      pc.Port,
				portIndex: idx,
				direction: pc.Direction,
				threshold: pc.Tokens,
			}
		}
		return o
	case am.Exec:
		return op{kind: opExec, transition: in.Transition, next: in.Next}
	case am.Wait:
		return op{kind: opWait, next: in.Next}
	default:
		panic(fmt.Sprintf("scheduler: unsupported instruction type %T", instr))
	}
}

// Machine returns the machine the program was lowered from.
func (p *Program) Machine() *am.ActorMachine {
	return p.machine
}

// Hash returns the machine's content hash. Checkpoints carry it so a
// counter is never restored into a different machine revision.
func (p *Program) Hash() string {
	return p.hash
}

// Entry returns the state a fresh instance starts from.
func (p *Program) Entry() int {
	return am.InitialState
}

// ResumeTable returns, in ascending order, exactly the states that are the
// Next target of some Wait.
func (p *Program) ResumeTable() []int {
	return slices.Clone(p.resume)
}

// Resumable reports whether pc is a valid program counter: the entry state
// or a resume target.
func (p *Program) Resumable(pc int) bool {
	if pc == p.Entry() {
		return true
	}
	return pc >= 0 && pc < len(p.resumable) && p.resumable[pc]
}

// Recoverable reports whether pc is the Next target of some Exec. A failed
// invocation leaves the counter there so the transitions it already fired
// are not fired again.
func (p *Program) Recoverable(pc int) bool {
	return pc >= 0 && pc < len(p.recovery) && p.recovery[pc]
}

// validPC reports whether an instance may start an invocation at pc.
func (p *Program) validPC(pc int) bool {
	return p.Resumable(pc) || p.Recoverable(pc)
}

// MaxOps returns the op budget of one Step.
func (p *Program) MaxOps() int {
	return p.maxOps
}

// Listing renders the dispatch table and the lowered ops for inspection.
func (p *Program) Listing() string {
	m := p.machine
	var b strings.Builder

	fmt.Fprintf(&b, "machine %s (%s)\n", m.Name, shortHash(p.hash))
	fmt.Fprintf(&b, "entry: S%d\n", p.Entry())

	resume := make([]string, len(p.resume))
	for i, s := range p.resume {
		resume[i] = fmt.Sprintf("S%d", s)
	}
	fmt.Fprintf(&b, "resume: [%s]\n", strings.Join(resume, " "))

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for i, o := range p.ops {
		marks := ""
		if i == p.Entry() {
			marks += " entry"
		}
		if p.resumable[i] {
			marks += " resume"
		}
		if p.recovery[i] {
			marks += " recover"
		}
		fmt.Fprintf(tw, "S%d\t%s\t%s\n", i, p.formatOp(o), strings.TrimSpace(marks))
	}
	_ = tw.Flush()

	return b.String()
}

func (p *Program) formatOp(o op) string {
	m := p.machine
	switch o.kind {
	case opTest:
		s := fmt.Sprintf("TEST c%d(%s) ? S%d : S%d", o.condition, m.Conditions[o.condition].Label(), o.whenTrue, o.whenFalse)
		if o.block != nil {
			s += fmt.Sprintf(" [blocks %s %s]", o.block.direction, o.block.port)
		}
		return s
	case opExec:
		return fmt.Sprintf("EXEC %s -> S%d", m.TransitionName(o.transition), o.next)
	case opWait:
		return fmt.Sprintf("WAIT -> S%d", o.next)
	default:
		panic(fmt.Sprintf("scheduler: unknown op kind %d", o.kind))
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
