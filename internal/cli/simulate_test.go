package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/amc/internal/store"
)

func TestSimulatePassingScenario(t *testing.T) {
	out, err := execute(t, "simulate", scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ filter-forward")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestSimulateSingleFileJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "simulate", filepath.Join(scenariosDir, "filter.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   SimulateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "filter-forward", resp.Data.Scenarios[0].Name)
	assert.Equal(t, 0, resp.Data.Scenarios[0].FinalPC)
}

func TestSimulateMismatchFails(t *testing.T) {
	out, err := execute(t, "simulate", failingDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ filter-mismatch")
	assert.Contains(t, out, "step 0: fired: expected [pass], got [drop]")
}

func TestSimulateFilter(t *testing.T) {
	out, err := execute(t, "simulate", "testdata", "--filter", "filter*")
	require.NoError(t, err)
	assert.Contains(t, out, "filter-forward")
	assert.NotContains(t, out, "filter-mismatch")
}

func TestSimulateNoScenarios(t *testing.T) {
	out, err := execute(t, "simulate", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestSimulateMissingPath(t *testing.T) {
	_, err := execute(t, "simulate", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSimulateGoldenUpdateAndCompare(t *testing.T) {
	dir := t.TempDir()
	specs, err := filepath.Abs(machinesDir)
	require.NoError(t, err)

	scenario := "name: golden-filter\nspecs: " + specs + "\nactor: Filter\nsteps:\n  - tokens: {data: 1, result: 1}\n    predicates: {positive: true}\n"
	scenarioPath := filepath.Join(dir, "golden-filter.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(scenario), 0o644))

	_, err = execute(t, "simulate", dir, "--update")
	require.NoError(t, err)

	goldenPath := filepath.Join(dir, "golden", "golden-filter.golden")
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"golden-filter"`)
	assert.Contains(t, string(golden), `"fired":["pass"]`)

	_, err = execute(t, "simulate", dir)
	require.NoError(t, err, "trace matches the golden file it just wrote")

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}"), 0o644))
	out, err := execute(t, "simulate", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestSimulateCheckpointsInstances(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "amc.db")
	specs, err := filepath.Abs(machinesDir)
	require.NoError(t, err)

	scenario := "name: resumable\nspecs: " + specs + "\nactor: Filter\ninstance: filter-1\nsteps:\n  - tokens: {data: 1, result: 1}\n    predicates: {positive: true}\n"
	scenarioPath := filepath.Join(dir, "resumable.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(scenario), 0o644))

	_, err = execute(t, "simulate", scenarioPath, "--db", dbPath)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	cp, err := st.LoadCheckpoint(context.Background(), "filter-1")
	require.NoError(t, err)
	assert.Equal(t, "Filter", cp.Machine)
	assert.Equal(t, 0, cp.PC)
	assert.Positive(t, cp.Clock)
}
