package cli

import (
	"bytes"
	"path/filepath"
	"testing"
)

var (
	machinesDir  = filepath.Join("testdata", "machines")
	malformedDir = filepath.Join("testdata", "malformed")
	invalidDir   = filepath.Join("testdata", "invalid")
	scenariosDir = filepath.Join("testdata", "scenarios")
	failingDir   = filepath.Join("testdata", "failing")
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}
