package am

import "fmt"

// Direction is the direction of a port as seen from the actor.
type Direction string

const (
	// Input ports deliver tokens to the actor.
	Input Direction = "input"
	// Output ports accept tokens from the actor.
	Output Direction = "output"
)

// ValidDirections defines allowed port directions.
var ValidDirections = map[Direction]bool{
	Input:  true,
	Output: true,
}

// Condition is a sealed interface over the two kinds of guard the automaton
// can test. Only PredicateCondition and PortCondition implement it.
type Condition interface {
	condition() // Sealed
	// Label is a display name used in diagnostics and scenarios.
	Label() string
}

// PredicateCondition tests actor-local state only. Its value changes solely
// through the actor's own firings.
type PredicateCondition struct {
	Name string `json:"name"`
}

func (PredicateCondition) condition() {}

// Label returns the predicate name.
func (c PredicateCondition) Label() string { return c.Name }

// PortCondition is true iff the port has at least Tokens available tokens
// (input) or free slots (output). Another actor can change its value, so it
// is time-dependent.
type PortCondition struct {
	Name      string    `json:"name,omitempty"`
	Port      string    `json:"port"`
	Direction Direction `json:"direction"`
	Tokens    int       `json:"tokens"`
}

func (PortCondition) condition() {}

// Label returns the explicit name, or "port>=N" when unnamed.
func (c PortCondition) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("%s>=%d", c.Port, c.Tokens)
}

// IsTimeDependent reports whether a condition's truth value can change
// through another actor's actions.
func IsTimeDependent(c Condition) bool {
	switch c.(type) {
	case PortCondition:
		return true
	case PredicateCondition:
		return false
	default:
		panic(fmt.Sprintf("am: unsupported condition type %T", c))
	}
}
