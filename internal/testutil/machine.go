package testutil

import "github.com/roach88/amc/internal/am"

// MachineBuilder assembles actor machines for tests. States are appended in
// call order, so the n-th Test/Exec/Wait/State call creates state n.
type MachineBuilder struct {
	m am.ActorMachine
}

// NewMachine starts a machine with the given name.
func NewMachine(name string) *MachineBuilder {
	return &MachineBuilder{m: am.ActorMachine{Name: name}}
}

// Input declares an input port.
func (b *MachineBuilder) Input(name string) *MachineBuilder {
	b.m.Ports = append(b.m.Ports, am.Port{Name: name, Direction: am.Input})
	return b
}

// Output declares an output port.
func (b *MachineBuilder) Output(name string) *MachineBuilder {
	b.m.Ports = append(b.m.Ports, am.Port{Name: name, Direction: am.Output})
	return b
}

// PortCond appends a port condition. The direction comes from the port
// declaration, so declare ports first.
func (b *MachineBuilder) PortCond(port string, tokens int) *MachineBuilder {
	c := am.PortCondition{Port: port, Tokens: tokens}
	if p, _, ok := b.m.Port(port); ok {
		c.Direction = p.Direction
	}
	b.m.Conditions = append(b.m.Conditions, c)
	return b
}

// Predicate appends a predicate condition.
func (b *MachineBuilder) Predicate(name string) *MachineBuilder {
	b.m.Conditions = append(b.m.Conditions, am.PredicateCondition{Name: name})
	return b
}

// Transition appends a transition without token rates.
func (b *MachineBuilder) Transition(name string) *MachineBuilder {
	b.m.Transitions = append(b.m.Transitions, am.Transition{Name: name})
	return b
}

// Rates sets the token rates of the most recently added transition.
func (b *MachineBuilder) Rates(consumes, produces map[string]int) *MachineBuilder {
	if n := len(b.m.Transitions); n > 0 {
		b.m.Transitions[n-1].Consumes = consumes
		b.m.Transitions[n-1].Produces = produces
	}
	return b
}

// Test appends a state holding a Test instruction.
func (b *MachineBuilder) Test(cond, whenTrue, whenFalse int) *MachineBuilder {
	return b.State(am.Test{Condition: cond, WhenTrue: whenTrue, WhenFalse: whenFalse})
}

// Exec appends a state holding an Exec instruction.
func (b *MachineBuilder) Exec(transition, next int) *MachineBuilder {
	return b.State(am.Exec{Transition: transition, Next: next})
}

// Wait appends a state holding a Wait instruction.
func (b *MachineBuilder) Wait(next int) *MachineBuilder {
	return b.State(am.Wait{Next: next})
}

// State appends a state with arbitrary instructions, including none or
// several for malformed-input tests.
func (b *MachineBuilder) State(instrs ...am.Instruction) *MachineBuilder {
	b.m.States = append(b.m.States, am.State{
		Index:        len(b.m.States),
		Instructions: append([]am.Instruction{}, instrs...),
	})
	return b
}

// Build returns the assembled machine. The builder must not be reused.
func (b *MachineBuilder) Build() *am.ActorMachine {
	m := b.m
	return &m
}

// PortRaceMachine: one start state whose only decision is a port
// condition; the two branches fire different transitions.
//
//	S0: TEST c0(in>=1) ? S1 : S2
//	S1: EXEC t0 -> S3
//	S2: EXEC t1 -> S3
//	S3: WAIT -> S0
func PortRaceMachine() *am.ActorMachine {
	return NewMachine("PortRace").
		Input("in").
		PortCond("in", 1).
		Transition("t0").Transition("t1").
		Test(0, 1, 2).
		Exec(0, 3).
		Exec(1, 3).
		Wait(0).
		Build()
}

// PredicateChoiceMachine has the shape of PortRaceMachine but decides on
// a predicate.
func PredicateChoiceMachine() *am.ActorMachine {
	return NewMachine("PredicateChoice").
		Predicate("ready").
		Transition("t0").Transition("t1").
		Test(0, 1, 2).
		Exec(0, 3).
		Exec(1, 3).
		Wait(0).
		Build()
}

// TerminalMachine waits on itself forever.
//
//	S0: WAIT -> S0
func TerminalMachine() *am.ActorMachine {
	return NewMachine("Terminal").Wait(0).Build()
}

// PipelineMachine fires an init transition once, then repeatedly forwards
// tokens from in to out.
//
//	S0: EXEC init -> S1
//	S1: WAIT -> S2
//	S2: TEST c0(in>=2) ? S3 : S5
//	S3: EXEC step -> S4
//	S4: WAIT -> S2
//	S5: WAIT -> S2
func PipelineMachine() *am.ActorMachine {
	return NewMachine("Pipeline").
		Input("in").Output("out").
		PortCond("in", 2).
		Transition("init").
		Transition("step").Rates(map[string]int{"in": 2}, map[string]int{"out": 1}).
		Exec(0, 1).
		Wait(2).
		Test(0, 3, 5).
		Exec(1, 4).
		Wait(2).
		Wait(2).
		Build()
}

// FilterMachine passes positive tokens from data to result and drops the
// rest. Its only start state decides on a predicate after a port check, so
// it carries no race liability.
//
//	S0: TEST c0(data>=1)   ? S1 : S5
//	S1: TEST c1(positive)  ? S2 : S4
//	S2: TEST c2(result>=1) ? S3 : S5
//	S3: EXEC pass -> S0
//	S4: EXEC drop -> S0
//	S5: WAIT -> S0
func FilterMachine() *am.ActorMachine {
	return NewMachine("Filter").
		Input("data").Output("result").
		PortCond("data", 1).
		Predicate("positive").
		PortCond("result", 1).
		Transition("pass").Rates(map[string]int{"data": 1}, map[string]int{"result": 1}).
		Transition("drop").Rates(map[string]int{"data": 1}, nil).
		Test(0, 1, 5).
		Test(1, 2, 4).
		Test(2, 3, 5).
		Exec(0, 0).
		Exec(1, 0).
		Wait(0).
		Build()
}
