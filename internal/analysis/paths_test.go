package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/amc/internal/am"
	"github.com/roach88/amc/internal/testutil"
)

func TestEnumeratePaths_TrueBranchFirst(t *testing.T) {
	actx := NewContext(testutil.FilterMachine(), nil, nil)

	paths := EnumeratePaths(actx, 0)
	require.Len(t, paths, 2)

	assert.Equal(t, SelectionPath{
		Start:      0,
		Decisions:  []Decision{{0, true}, {1, true}, {2, true}},
		Transition: 0,
	}, paths[0])
	assert.Equal(t, SelectionPath{
		Start:      0,
		Decisions:  []Decision{{0, true}, {1, false}},
		Transition: 1,
	}, paths[1])
	assert.Equal(t, "S0: c0=T c1=T c2=T -> t0", paths[0].String())
}

func TestEnumeratePaths_WaitEmitsNothing(t *testing.T) {
	actx := NewContext(testutil.PortRaceMachine(), nil, nil)
	assert.Empty(t, EnumeratePaths(actx, 3))
}

func TestEnumeratePaths_ExecAtStart(t *testing.T) {
	actx := NewContext(testutil.PipelineMachine(), nil, nil)

	paths := EnumeratePaths(actx, 0)
	require.Len(t, paths, 1)
	assert.Empty(t, paths[0].Decisions)
	assert.Equal(t, 0, paths[0].Transition)
}

func TestEnumeratePaths_SiblingsDoNotShareDecisions(t *testing.T) {
	// Four leaves under two levels of tests.
	m := testutil.NewMachine("Tree").
		Predicate("a").Predicate("b").
		Transition("t0").Transition("t1").Transition("t2").Transition("t3").
		Test(0, 1, 2).
		Test(1, 3, 4).
		Test(1, 5, 6).
		Exec(0, 7).
		Exec(1, 7).
		Exec(2, 7).
		Exec(3, 7).
		Wait(0).
		Build()

	paths := EnumeratePaths(NewContext(m, nil, nil), 0)
	require.Len(t, paths, 4)
	assert.Equal(t, []Decision{{0, true}, {1, true}}, paths[0].Decisions)
	assert.Equal(t, []Decision{{0, true}, {1, false}}, paths[1].Decisions)
	assert.Equal(t, []Decision{{0, false}, {1, true}}, paths[2].Decisions)
	assert.Equal(t, []Decision{{0, false}, {1, false}}, paths[3].Decisions)
	for i, p := range paths {
		assert.Equal(t, i, p.Transition)
	}
}

func TestEnumeratePaths_DecisionLoop(t *testing.T) {
	m := testutil.NewMachine("Loop").
		Predicate("p").
		Transition("t0").
		Test(0, 1, 0).
		Exec(0, 2).
		Wait(0).
		Build()

	c := NewCollector()
	paths := EnumeratePaths(NewContext(m, c, nil), 0)

	require.Len(t, paths, 1, "the non-looping branch still yields its path")
	assert.Equal(t, []Decision{{0, true}}, paths[0].Decisions)

	diags := c.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, CodeDecisionLoop, diags[0].Code)
	assert.Equal(t, SeverityFatal, diags[0].Severity)
}

func TestEnumeratePaths_LoopReportedOncePerStart(t *testing.T) {
	m := testutil.NewMachine("Loops").
		Predicate("p").Predicate("q").
		Test(0, 1, 0).
		Test(1, 0, 1).
		Build()

	c := NewCollector()
	assert.Empty(t, EnumeratePaths(NewContext(m, c, nil), 0))
	assert.Len(t, c.Diagnostics(), 1)
}

func TestEnumeratePaths_SkipsBrokenBranches(t *testing.T) {
	m := testutil.NewMachine("Broken").
		Predicate("p").
		Transition("t0").
		Test(0, 9, 1).
		State(am.Exec{Transition: 0, Next: 0}, am.Wait{Next: 0}).
		Build()

	c := NewCollector()
	assert.Empty(t, EnumeratePaths(NewContext(m, c, nil), 0))
	assert.Empty(t, c.Diagnostics(), "broken states are reported by the locator, not here")
}

func TestEnumeratePaths_DeepChainWithoutRecursion(t *testing.T) {
	// S0..S(n-1) test in a chain; the last true branch fires, every false
	// branch waits.
	const n = 1000
	b := testutil.NewMachine("Deep").Predicate("p").Transition("t0")
	for i := 0; i < n; i++ {
		b.Test(0, i+1, n+1)
	}
	m := b.Exec(0, n+1).Wait(0).Build()

	paths := EnumeratePaths(NewContext(m, nil, nil), 0)
	require.Len(t, paths, 1)
	assert.Len(t, paths[0].Decisions, n)
}
