package analysis

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/amc/internal/am"
	"github.com/roach88/amc/internal/logging"
	"github.com/roach88/amc/internal/testutil"
)

func fixtures() []*am.ActorMachine {
	return []*am.ActorMachine{
		testutil.PortRaceMachine(),
		testutil.PredicateChoiceMachine(),
		testutil.TerminalMachine(),
		testutil.PipelineMachine(),
		testutil.FilterMachine(),
	}
}

func TestAnalyze_ScenarioA(t *testing.T) {
	diags, err := Analyze(context.Background(), []*am.ActorMachine{testutil.PortRaceMachine()})
	require.NoError(t, err)

	require.Len(t, diags, 1)
	assert.Equal(t, CodeTimingDependent, diags[0].Code)
	assert.Equal(t, []int{0, 1}, diags[0].Transitions)
}

func TestAnalyze_ScenarioB(t *testing.T) {
	diags, err := Analyze(context.Background(), []*am.ActorMachine{testutil.PredicateChoiceMachine()})
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestAnalyze_Idempotent(t *testing.T) {
	machines := fixtures()

	first, err := Analyze(context.Background(), machines)
	require.NoError(t, err)
	second, err := Analyze(context.Background(), machines)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnalyze_DoesNotMutate(t *testing.T) {
	machines := fixtures()
	before := make([]string, len(machines))
	for i, m := range machines {
		before[i] = am.MustMachineHash(m)
	}

	_, err := Analyze(context.Background(), machines, WithConcurrency(4))
	require.NoError(t, err)

	for i, m := range machines {
		assert.Equal(t, before[i], am.MustMachineHash(m), m.Name)
	}
}

func TestAnalyze_DeterministicAcrossConcurrency(t *testing.T) {
	var machines []*am.ActorMachine
	for i := 0; i < 20; i++ {
		m := testutil.PortRaceMachine()
		m.Name = fmt.Sprintf("Race%02d", i)
		machines = append(machines, m, testutil.FilterMachine())
	}

	serial, err := Analyze(context.Background(), machines, WithConcurrency(1))
	require.NoError(t, err)
	parallel, err := Analyze(context.Background(), machines, WithConcurrency(8))
	require.NoError(t, err)

	require.Len(t, serial, 20)
	assert.Equal(t, serial, parallel)
	assert.Equal(t, "Race00", serial[0].Machine)
	assert.Equal(t, "Race19", serial[19].Machine)
}

func TestAnalyze_LocatorFindingsFirst(t *testing.T) {
	bad := testutil.PortRaceMachine()
	bad.Name = "Bad"
	bad.States = append(bad.States, am.State{Index: 4})

	diags, err := Analyze(context.Background(), []*am.ActorMachine{bad})
	require.NoError(t, err)

	require.Len(t, diags, 2)
	assert.Equal(t, CodeMalformedController, diags[0].Code)
	assert.Equal(t, 4, diags[0].StartState)
	assert.Equal(t, CodeTimingDependent, diags[1].Code)

	s := Summarize(diags)
	assert.Equal(t, Summary{Fatals: 1, Warnings: 1}, s)
	assert.True(t, s.HasFatal())
}

func TestAnalyze_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Analyze(ctx, fixtures())
	require.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_Empty(t *testing.T) {
	diags, err := Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestAnalyze_RejectsPointerShapes(t *testing.T) {
	m := testutil.NewMachine("Pointers").
		Input("in").
		PortCond("in", 1).
		State(&am.Test{Condition: 0, WhenTrue: 1, WhenFalse: 1}).
		Wait(0).
		Build()

	diags, err := Analyze(context.Background(), []*am.ActorMachine{testutil.PortRaceMachine(), m})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported instruction type *am.Test")
	assert.Nil(t, diags)
}

func TestAnalyze_LogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(slog.LevelDebug, &buf)

	_, err := Analyze(context.Background(), []*am.ActorMachine{testutil.FilterMachine()}, WithLogger(logger))
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "located start states")
	assert.Contains(t, buf.String(), "machine=Filter")
	assert.Contains(t, buf.String(), "count=1")
}

func TestAnalyzeMachine_MatchesAnalyze(t *testing.T) {
	for _, m := range fixtures() {
		c := NewCollector()
		AnalyzeMachine(NewContext(m, c, nil))

		diags, err := Analyze(context.Background(), []*am.ActorMachine{m})
		require.NoError(t, err)
		assert.Equal(t, diags, c.Diagnostics(), m.Name)
	}
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{
		Severity:   SeverityWarning,
		Code:       CodeTimingDependent,
		Machine:    "PortRace",
		StartState: 0,
		Message:    "choice",
	}
	assert.Equal(t, "warning [A101] PortRace S0: choice", d.String())
}

func TestCollector_ConcurrentReports(t *testing.T) {
	c := NewCollector()
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				c.Report(Diagnostic{Code: CodeTimingDependent})
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	assert.Len(t, c.Diagnostics(), 1000)
}
