package harness

import "github.com/roach88/amc/internal/am"

// PortBlock names a port that blocked a step, with its deficit.
// Used both in traces and in expect clauses.
type PortBlock struct {
	Port      string       `json:"port" yaml:"port"`
	Direction am.Direction `json:"direction" yaml:"direction"`
	Deficit   int          `json:"deficit" yaml:"deficit"`
}

// TraceEvent records the observed outcome of one step.
type TraceEvent struct {
	Step    int         `json:"step"`
	Outcome string      `json:"outcome"` // progress, blocked, terminal or error
	Fired   []string    `json:"fired"`
	Blocked []PortBlock `json:"blocked,omitempty"`
	PC      int         `json:"pc"`
	Error   string      `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step matched its expect clause.
	Pass bool `json:"pass"`

	Machine  string `json:"machine"`
	Instance string `json:"instance"`

	// Restored is true when the instance resumed from a checkpoint.
	Restored bool `json:"restored,omitempty"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// FinalPC is the program counter after the last step.
	FinalPC int `json:"final_pc"`

	// Errors contains expectation mismatches. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
