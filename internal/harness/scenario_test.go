package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "machines"), 0o755))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/filter.yaml")
	require.NoError(t, err)

	assert.Equal(t, "filter-basic", s.Name)
	assert.Equal(t, "Filter", s.Actor)
	assert.Equal(t, filepath.Join("testdata", "machines"), s.Specs)
	require.Len(t, s.Steps, 4)

	first := s.Steps[0]
	assert.Equal(t, map[string]int{"data": 2, "result": 1}, first.Tokens)
	assert.Equal(t, map[string]bool{"positive": true}, first.Predicates)
	require.NotNil(t, first.Expect)
	assert.Equal(t, OutcomeProgress, first.Expect.Outcome)
	assert.Equal(t, []string{"pass"}, first.Expect.Fired)
	require.NotNil(t, first.Expect.PC)
	assert.Equal(t, 0, *first.Expect.PC)
	assert.Equal(t, []PortBlock{{Port: "result", Direction: "output", Deficit: 1}}, first.Expect.Blocked)

	assert.Equal(t, []string{"drop"}, s.Steps[3].Fail)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
specs: machines
actor: A
stepz: []
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "specs: machines\nactor: A\nsteps: [{}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing specs",
			content: "name: x\nactor: A\nsteps: [{}]\n",
			wantErr: "specs directory is required",
		},
		{
			name:    "missing actor",
			content: "name: x\nspecs: machines\nsteps: [{}]\n",
			wantErr: "actor is required",
		},
		{
			name:    "no steps",
			content: "name: x\nspecs: machines\nactor: A\n",
			wantErr: "steps list is required",
		},
		{
			name:    "specs not found",
			content: "name: x\nspecs: elsewhere\nactor: A\nsteps: [{}]\n",
			wantErr: "specs directory not found",
		},
		{
			name:    "negative tokens",
			content: "name: x\nspecs: machines\nactor: A\nsteps: [{tokens: {p: -1}}]\n",
			wantErr: "must be non-negative",
		},
		{
			name:    "unknown outcome",
			content: "name: x\nspecs: machines\nactor: A\nsteps: [{expect: {outcome: done}}]\n",
			wantErr: "unknown outcome",
		},
		{
			name:    "error without error outcome",
			content: "name: x\nspecs: machines\nactor: A\nsteps: [{expect: {outcome: blocked, error: boom}}]\n",
			wantErr: "error is only valid",
		},
		{
			name:    "negative max ops",
			content: "name: x\nspecs: machines\nactor: A\nmax_ops: -1\nsteps: [{}]\n",
			wantErr: "max_ops must be non-negative",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	s, err := LoadScenarioWithBasePath("testdata/scenarios/idle.yaml", "testdata/scenarios")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "machines"), s.Specs)
}
