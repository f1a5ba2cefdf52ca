package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/amc/internal/am"
	"github.com/roach88/amc/internal/testutil"
)

func checkStart(m *am.ActorMachine, start int) []Diagnostic {
	c := NewCollector()
	actx := NewContext(m, c, nil)
	CheckRaces(actx, start, EnumeratePaths(actx, start))
	return c.Diagnostics()
}

func TestCheckRaces_PortDiscriminatorDifferentTransitions(t *testing.T) {
	diags := checkStart(testutil.PortRaceMachine(), 0)

	require.Len(t, diags, 1)
	d := diags[0]
	assert.Equal(t, SeverityWarning, d.Severity)
	assert.Equal(t, CodeTimingDependent, d.Code)
	assert.Equal(t, "PortRace", d.Machine)
	assert.Equal(t, 0, d.StartState)
	assert.Equal(t, []int{0, 1}, d.Transitions)
	require.NotNil(t, d.Condition)
	assert.Equal(t, 0, *d.Condition)
	assert.Contains(t, d.Message, "t0")
	assert.Contains(t, d.Message, "t1")
}

func TestCheckRaces_PredicateDiscriminator(t *testing.T) {
	assert.Empty(t, checkStart(testutil.PredicateChoiceMachine(), 0))
}

func TestCheckRaces_PortDiscriminatorSameTransition(t *testing.T) {
	m := testutil.NewMachine("Same").
		Input("in").
		PortCond("in", 1).
		Transition("t0").
		Test(0, 1, 2).
		Exec(0, 3).
		Exec(0, 3).
		Wait(0).
		Build()

	assert.Empty(t, checkStart(m, 0))
}

func TestCheckRaces_OneWarningPerPair(t *testing.T) {
	m := testutil.NewMachine("ThreeWay").
		Input("a").Input("b").
		PortCond("a", 1).PortCond("b", 1).
		Transition("t0").Transition("t1").Transition("t2").
		Test(0, 1, 2).
		Exec(0, 5).
		Test(1, 3, 4).
		Exec(1, 5).
		Exec(2, 5).
		Wait(0).
		Build()

	diags := checkStart(m, 0)
	require.Len(t, diags, 3)
	assert.Equal(t, []int{0, 1}, diags[0].Transitions)
	assert.Equal(t, []int{0, 2}, diags[1].Transitions)
	assert.Equal(t, []int{1, 2}, diags[2].Transitions)
	assert.Equal(t, 0, *diags[0].Condition)
	assert.Equal(t, 0, *diags[1].Condition)
	assert.Equal(t, 1, *diags[2].Condition)
}

func TestCheckRaces_PredicateAfterPortIsSafe(t *testing.T) {
	// Both paths pass the same port check and split on a predicate.
	assert.Empty(t, checkStart(testutil.FilterMachine(), 0))
}

func TestCheckRaces_NoCommonPrefix(t *testing.T) {
	m := testutil.PortRaceMachine()
	c := NewCollector()
	actx := NewContext(m, c, nil)

	paths := []SelectionPath{
		{Start: 0, Decisions: []Decision{{0, true}}, Transition: 0},
		{Start: 0, Decisions: nil, Transition: 1},
		{Start: 0, Decisions: []Decision{{0, false}}, Transition: 1},
	}
	CheckRaces(actx, 0, paths)

	diags := c.Diagnostics()
	require.Len(t, diags, 3)
	assert.Equal(t, CodeInvalidController, diags[0].Code)
	assert.Equal(t, SeverityFatal, diags[0].Severity)
	assert.Equal(t, CodeTimingDependent, diags[1].Code, "remaining pairs are still checked")
	assert.Equal(t, CodeInvalidController, diags[2].Code)
}

func TestCheckRaces_IndexBasedPrefixApproximation(t *testing.T) {
	// A port check on c0 splits the machine, then both sides re-test the
	// predicate c1. The paths to t0 (c0=T c1=T) and t2 (c0=F c1=T) really
	// diverge at the port, but their condition indices agree at both
	// positions, so the discriminator is taken to be c1 and no warning is
	// raised. This is the expected, approximate behavior.
	m := testutil.NewMachine("Retest").
		Input("in").
		PortCond("in", 1).
		Predicate("p").
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

	assert.Empty(t, checkStart(m, 0))

	// With the conditions swapped the same shape errs the other way: every
	// pair is judged at the port on depth 1, including t0/t2 whose real
	// split is the predicate at depth 0.
	m.Conditions[0], m.Conditions[1] = m.Conditions[1], m.Conditions[0]
	diags := checkStart(m, 0)
	assert.Len(t, diags, 6)
}

func TestCheckRaces_NonEmptyCommonPrefix(t *testing.T) {
	machines := []*am.ActorMachine{
		testutil.PortRaceMachine(),
		testutil.PredicateChoiceMachine(),
		testutil.TerminalMachine(),
		testutil.PipelineMachine(),
		testutil.FilterMachine(),
	}

	for _, m := range machines {
		actx := NewContext(m, nil, nil)
		for _, s := range StartStates(actx) {
			paths := EnumeratePaths(actx, s)
			for i := 0; i < len(paths); i++ {
				for j := i + 1; j < len(paths); j++ {
					assert.GreaterOrEqual(t, lastCommonIndex(paths[i].Decisions, paths[j].Decisions), 0,
						"%s S%d: %s vs %s", m.Name, s, paths[i], paths[j])
				}
			}
		}
	}
}

func TestLastCommonIndex(t *testing.T) {
	a := []Decision{{0, true}, {1, true}, {2, false}}
	b := []Decision{{0, false}, {1, true}, {3, true}}

	assert.Equal(t, 1, lastCommonIndex(a, b))
	assert.Equal(t, -1, lastCommonIndex(a, []Decision{{5, true}}))
	assert.Equal(t, -1, lastCommonIndex(nil, b))
	assert.Equal(t, 2, lastCommonIndex(a, a))
}
