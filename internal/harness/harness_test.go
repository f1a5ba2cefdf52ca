package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/amc/internal/store"
	"github.com/roach88/amc/internal/testutil"
)

func loadTestScenario(t *testing.T, file string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", file))
	require.NoError(t, err)
	return s
}

func fixedIDs() Option {
	return WithIDGenerator(testutil.NewFixedIDGenerator("sim"))
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRun_Golden(t *testing.T) {
	for _, file := range []string{"filter.yaml", "pipeline.yaml", "idle.yaml", "spin.yaml"} {
		file := file
		t.Run(file, func(t *testing.T) {
			s := loadTestScenario(t, file)
			result, err := RunWithGolden(t, s, fixedIDs())
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
			assert.Len(t, result.Trace, len(s.Steps))
		})
	}
}

func TestRun_RecordsMismatches(t *testing.T) {
	s := loadTestScenario(t, "idle.yaml")
	pc := 3
	s.Steps[0].Expect = &Expect{Outcome: OutcomeProgress, Fired: []string{"tick"}, PC: &pc}

	result, err := Run(context.Background(), s, fixedIDs())
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, []string{
		"step 0: outcome: expected progress, got terminal",
		"step 0: fired: expected [tick], got []",
		"step 0: pc: expected S3, got S0",
	}, result.Errors)
}

func TestRun_ErrorStepRecordsEarlierFirings(t *testing.T) {
	result, err := Run(context.Background(), loadTestScenario(t, "spin.yaml"), fixedIDs())
	require.NoError(t, err)

	require.Len(t, result.Trace, 1)
	assert.Equal(t, OutcomeError, result.Trace[0].Outcome)
	assert.Equal(t, []string{"tick", "tick", "tick", "tick", "tick"}, result.Trace[0].Fired)
	assert.Equal(t, 0, result.Trace[0].PC)
}

func TestRun_UnknownActor(t *testing.T) {
	s := loadTestScenario(t, "idle.yaml")
	s.Actor = "Nobody"

	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `actor "Nobody" not found`)
}

func TestRun_UsesScenarioInstance(t *testing.T) {
	s := loadTestScenario(t, "pipeline.yaml")

	result, err := Run(context.Background(), s, fixedIDs())
	require.NoError(t, err)
	assert.Equal(t, "pipeline-1", result.Instance)
}

func TestRun_SavesCheckpoint(t *testing.T) {
	st := openTestStore(t)
	s := loadTestScenario(t, "pipeline.yaml")

	result, err := Run(context.Background(), s, WithStore(st))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	assert.False(t, result.Restored)

	cp, err := st.LoadCheckpoint(context.Background(), "pipeline-1")
	require.NoError(t, err)
	assert.Equal(t, "Pipeline", cp.Machine)
	assert.Equal(t, 2, cp.PC)
	// init + two combines
	assert.Equal(t, int64(3), cp.Clock)
}

func TestRun_RestoresCheckpoint(t *testing.T) {
	st := openTestStore(t)
	s := loadTestScenario(t, "pipeline.yaml")

	_, err := Run(context.Background(), s, WithStore(st))
	require.NoError(t, err)

	// A resumed instance skips init: the first step tests src directly.
	resumed := &Scenario{
		Name:     "pipeline-resumed",
		Specs:    s.Specs,
		Actor:    "Pipeline",
		Instance: "pipeline-1",
		Steps: []Step{{
			Tokens: map[string]int{"src": 2},
			Expect: &Expect{Outcome: OutcomeProgress, Fired: []string{"combine"}},
		}},
	}
	result, err := Run(context.Background(), resumed, WithStore(st))
	require.NoError(t, err)
	assert.True(t, result.Restored)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	cp, err := st.LoadCheckpoint(context.Background(), "pipeline-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), cp.Clock)
}

func TestRun_RefusesStaleCheckpoint(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.SaveCheckpoint(context.Background(), store.Checkpoint{
		InstanceID:  "pipeline-1",
		Machine:     "Pipeline",
		MachineHash: "stale",
		PC:          2,
	}))

	_, err := Run(context.Background(), loadTestScenario(t, "pipeline.yaml"), WithStore(st))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash stale")
}

func TestRun_CheckpointAtNonResumableState(t *testing.T) {
	st := openTestStore(t)
	s := loadTestScenario(t, "pipeline.yaml")

	_, err := Run(context.Background(), s, WithStore(st))
	require.NoError(t, err)
	cp, err := st.LoadCheckpoint(context.Background(), "pipeline-1")
	require.NoError(t, err)

	cp.PC = 3
	require.NoError(t, st.SaveCheckpoint(context.Background(), cp))

	_, err = Run(context.Background(), s, WithStore(st))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_PROGRAM_COUNTER")
}
