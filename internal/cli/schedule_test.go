package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/amc/internal/scheduler"
)

func TestScheduleListing(t *testing.T) {
	out, err := execute(t, "schedule", machinesDir)
	require.NoError(t, err)

	assert.Contains(t, out, "machine Filter (")
	assert.Contains(t, out, "machine PortRace (")
	assert.Contains(t, out, "TEST c0(data>=1) ? S1 : S5 [blocks input data]")
	assert.Contains(t, out, "EXEC t1 -> S3")
}

func TestScheduleSingleActorJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "schedule", machinesDir, "--actor", "PortRace")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   []ScheduleResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)

	r := resp.Data[0]
	assert.Equal(t, "PortRace", r.Machine)
	assert.Equal(t, 0, r.Entry)
	assert.Equal(t, []int{0}, r.ResumeTable)
	assert.Equal(t, scheduler.DefaultMaxOps, r.MaxOps)
	assert.Len(t, r.Hash, 64)
	assert.Contains(t, r.Listing, "resume: [S0]")
}

func TestScheduleUnknownActor(t *testing.T) {
	_, err := execute(t, "schedule", machinesDir, "--actor", "Nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `actor "Nope" not found`)
}

func TestScheduleRejectsMalformedMachine(t *testing.T) {
	out, err := execute(t, "schedule", malformedDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ synthesize Broken")
}
