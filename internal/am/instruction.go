package am

import "fmt"

// InstructionKind names the three instruction shapes.
type InstructionKind string

const (
	KindTest InstructionKind = "test"
	KindExec InstructionKind = "exec"
	KindWait InstructionKind = "wait"
)

// Instruction is a sealed interface over Test, Exec and Wait.
// Anything else is an internal contract violation.
type Instruction interface {
	instruction() // Sealed
	Kind() InstructionKind
}

// Test evaluates a condition and branches.
type Test struct {
	Condition int `json:"condition"`
	WhenTrue  int `json:"when_true"`
	WhenFalse int `json:"when_false"`
}

func (Test) instruction() {}

// Kind returns KindTest.
func (Test) Kind() InstructionKind { return KindTest }

// Exec fires a transition and continues at Next.
type Exec struct {
	Transition int `json:"transition"`
	Next       int `json:"next"`
}

func (Exec) instruction() {}

// Kind returns KindExec.
func (Exec) Kind() InstructionKind { return KindExec }

// Wait suspends the automaton; it resumes at Next.
type Wait struct {
	Next int `json:"next"`
}

func (Wait) instruction() {}

// Kind returns KindWait.
func (Wait) Kind() InstructionKind { return KindWait }

// Targets returns the successor states of an instruction in branch order
// (true before false for a Test).
func Targets(i Instruction) []int {
	switch in := i.(type) {
	case Test:
		return []int{in.WhenTrue, in.WhenFalse}
	case Exec:
		return []int{in.Next}
	case Wait:
		return []int{in.Next}
	default:
		panic(fmt.Sprintf("am: unsupported instruction type %T", i))
	}
}

// Format renders an instruction for listings and messages.
func Format(i Instruction) string {
	switch in := i.(type) {
	case Test:
		return fmt.Sprintf("TEST c%d ? S%d : S%d", in.Condition, in.WhenTrue, in.WhenFalse)
	case Exec:
		return fmt.Sprintf("EXEC t%d -> S%d", in.Transition, in.Next)
	case Wait:
		return fmt.Sprintf("WAIT -> S%d", in.Next)
	default:
		panic(fmt.Sprintf("am: unsupported instruction type %T", i))
	}
}
