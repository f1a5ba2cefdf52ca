package scheduler

// DefaultMaxOps is the default op budget of one Step.
// A well-formed invocation reaches a Wait long before this.
const DefaultMaxOps = 10000

// opBudget counts ops executed by one invocation and enforces a limit.
//
// A Test/Exec cycle with no Wait never suspends on its own; the budget
// turns that livelock into a QUOTA_EXCEEDED error instead of a hang.
// compiler.AnalyzeLivelocks finds such cycles statically.
type opBudget struct {
	max  int
	used int
}

func newOpBudget(max int) *opBudget {
	return &opBudget{max: max}
}

// check counts one op and reports whether the budget still holds.
func (b *opBudget) check() bool {
	b.used++
	return b.used <= b.max
}
