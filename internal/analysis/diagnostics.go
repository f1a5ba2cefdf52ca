package analysis

import (
	"fmt"
	"sync"
)

// Severity classifies a diagnostic.
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityWarning Severity = "warning"
)

// Diagnostic codes (A001-A199)
const (
	// Fatal: input invariant violations (A001-A099)
	CodeMalformedController = "A001" // state carries other than one instruction
	CodeInvalidController   = "A002" // two paths from one start state share no decision node
	CodeDecisionLoop        = "A003" // a decision branch revisits a state without firing

	// Warnings (A100-A199)
	CodeTimingDependent = "A101" // fired transition depends on token arrival order
)

// Diagnostic is one analysis finding.
//
// StartState is the start state under analysis; for A001 it is the
// malformed state itself. Transitions and Condition are set when the
// finding names them.
type Diagnostic struct {
	Severity    Severity `json:"severity"`
	Code        string   `json:"code"`
	Machine     string   `json:"machine"`
	StartState  int      `json:"start_state"`
	Transitions []int    `json:"transitions,omitempty"`
	Condition   *int     `json:"condition,omitempty"`
	Message     string   `json:"message"`
}

// String renders the diagnostic on one line.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s [%s] %s S%d: %s", d.Severity, d.Code, d.Machine, d.StartState, d.Message)
}

// Reporter receives diagnostics.
type Reporter interface {
	Report(d Diagnostic)
}

// Collector is a Reporter that keeps diagnostics in insertion order.
// Safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	diags []Diagnostic
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Report appends d.
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = append(c.diags, d)
}

// Diagnostics returns a copy of everything reported so far.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}

// Summary counts diagnostics by severity.
type Summary struct {
	Fatals   int `json:"fatals"`
	Warnings int `json:"warnings"`
}

// HasFatal reports whether any fatal diagnostic was seen.
func (s Summary) HasFatal() bool {
	return s.Fatals > 0
}

// Summarize counts diags by severity.
func Summarize(diags []Diagnostic) Summary {
	var s Summary
	for _, d := range diags {
		switch d.Severity {
		case SeverityFatal:
			s.Fatals++
		case SeverityWarning:
			s.Warnings++
		}
	}
	return s
}
