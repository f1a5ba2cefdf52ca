package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/amc/internal/am"
)

// TraceSnapshot captures the observable trace of a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Machine      string       `json:"machine"`
	Instance     string       `json:"instance"`
	Trace        []TraceEvent `json:"trace"`
	FinalPC      int          `json:"final_pc"`
}

// toCanonicalMap converts a TraceSnapshot to the value shapes
// am.MarshalCanonical accepts.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		fired := make([]any, len(event.Fired))
		for j, name := range event.Fired {
			fired[j] = name
		}
		eventMap := map[string]any{
			"step":    event.Step,
			"outcome": event.Outcome,
			"fired":   fired,
			"pc":      event.PC,
		}
		if len(event.Blocked) > 0 {
			blocked := make([]any, len(event.Blocked))
			for j, b := range event.Blocked {
				blocked[j] = map[string]any{
					"port":      b.Port,
					"direction": string(b.Direction),
					"deficit":   b.Deficit,
				}
			}
			eventMap["blocked"] = blocked
		}
		if event.Error != "" {
			eventMap["error"] = event.Error
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"machine":       s.Machine,
		"instance":      s.Instance,
		"trace":         traceList,
		"final_pc":      s.FinalPC,
	}
}

// Snapshot renders a result as canonical JSON.
func Snapshot(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: name,
		Machine:      result.Machine,
		Instance:     result.Instance,
		Trace:        result.Trace,
		FinalPC:      result.FinalPC,
	}
	return am.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)
	return nil
}
