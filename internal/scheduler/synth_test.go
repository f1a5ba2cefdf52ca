package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/amc/internal/am"
	"github.com/roach88/amc/internal/compiler"
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

func TestSynthesize_ResumeTableIsExactlyWaitTargets(t *testing.T) {
	for _, m := range fixtures() {
		p, err := Synthesize(m)
		require.NoError(t, err, m.Name)

		want := map[int]bool{}
		for _, s := range m.States {
			if w, ok := s.Instructions[0].(am.Wait); ok {
				want[w.Next] = true
			}
		}

		got := p.ResumeTable()
		assert.Len(t, got, len(want), m.Name)
		for _, s := range got {
			assert.True(t, want[s], "%s: S%d is not a wait target", m.Name, s)
		}
	}
}

func TestSynthesize_ResumeTables(t *testing.T) {
	tests := []struct {
		machine *am.ActorMachine
		want    []int
	}{
		{testutil.PortRaceMachine(), []int{0}},
		{testutil.TerminalMachine(), []int{0}},
		{testutil.PipelineMachine(), []int{2}},
		{testutil.FilterMachine(), []int{0}},
	}
	for _, tt := range tests {
		p, err := Synthesize(tt.machine)
		require.NoError(t, err)
		assert.Equal(t, tt.want, p.ResumeTable(), tt.machine.Name)
	}
}

func TestSynthesize_EntryIsAlwaysResumable(t *testing.T) {
	p, err := Synthesize(testutil.PipelineMachine())
	require.NoError(t, err)

	assert.Equal(t, 0, p.Entry())
	assert.NotContains(t, p.ResumeTable(), 0, "S0 is no wait target")
	assert.True(t, p.Resumable(0))
	assert.True(t, p.Resumable(2))
	assert.False(t, p.Resumable(1))
	assert.False(t, p.Resumable(-1))
	assert.False(t, p.Resumable(99))
}

func TestSynthesize_RecoveryPointsAreExecTargets(t *testing.T) {
	p, err := Synthesize(testutil.PipelineMachine())
	require.NoError(t, err)

	assert.True(t, p.Recoverable(1))
	assert.True(t, p.Recoverable(4))
	assert.False(t, p.Recoverable(2), "wait targets are resumable, not recovery points")
	assert.False(t, p.Recoverable(3))
	assert.False(t, p.Recoverable(-1))
	assert.NotContains(t, p.ResumeTable(), 1)
}

func TestSynthesize_ResumeTableIsACopy(t *testing.T) {
	p, err := Synthesize(testutil.PipelineMachine())
	require.NoError(t, err)

	table := p.ResumeTable()
	table[0] = 5
	assert.Equal(t, []int{2}, p.ResumeTable())
}

func TestSynthesize_RejectsMalformedInput(t *testing.T) {
	m := testutil.NewMachine("Bad").
		Transition("t").
		Exec(0, 1).
		State(am.Wait{Next: 0}, am.Wait{Next: 1}).
		Build()

	p, err := Synthesize(m)
	require.Error(t, err)
	assert.Nil(t, p)

	var se *SynthesisError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Bad", se.Machine)
	require.Len(t, se.Errors, 1)
	assert.Equal(t, compiler.ErrMalformedController, se.Errors[0].Code)
	assert.Contains(t, err.Error(), "synthesize Bad: 1 validation error(s)")
}

func TestSynthesize_RejectsNil(t *testing.T) {
	_, err := Synthesize(nil)

	var se *SynthesisError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, compiler.ErrUnsupportedInput, se.Errors[0].Code)
}

func TestSynthesize_RejectsPointerInstructions(t *testing.T) {
	m := testutil.NewMachine("Pointers").State(&am.Wait{Next: 0}).Build()

	p, err := Synthesize(m)
	assert.Nil(t, p)
	var se *SynthesisError
	require.ErrorAs(t, err, &se)
	require.Len(t, se.Errors, 1)
	assert.Equal(t, compiler.ErrUnsupportedInput, se.Errors[0].Code)
}

func TestSynthesize_CarriesMachineHash(t *testing.T) {
	m := testutil.FilterMachine()
	p, err := Synthesize(m)
	require.NoError(t, err)

	assert.Equal(t, am.MustMachineHash(m), p.Hash())
	assert.Same(t, m, p.Machine())
}

func TestSynthesize_MaxOps(t *testing.T) {
	p, err := Synthesize(testutil.TerminalMachine())
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxOps, p.MaxOps())

	p, err = Synthesize(testutil.TerminalMachine(), WithMaxOps(7))
	require.NoError(t, err)
	assert.Equal(t, 7, p.MaxOps())
}

func TestProgram_Listing(t *testing.T) {
	p, err := Synthesize(testutil.FilterMachine())
	require.NoError(t, err)

	listing := p.Listing()
	assert.Contains(t, listing, "machine Filter ("+p.Hash()[:12]+")")
	assert.Contains(t, listing, "entry: S0\n")
	assert.Contains(t, listing, "resume: [S0]\n")
	assert.Contains(t, listing, "TEST c0(data>=1) ? S1 : S5 [blocks input data]")
	assert.Contains(t, listing, "TEST c1(positive) ? S2 : S4")
	assert.Contains(t, listing, "EXEC pass -> S0")
	assert.Contains(t, listing, "WAIT -> S0")
	assert.Contains(t, listing, "entry resume recover")
}
