package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/amc/internal/analysis"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("analysis run not found")

// ErrCheckpointNotFound is returned when an instance has no checkpoint.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// ListRuns returns every run ordered by seq.
// Returns an empty slice (not nil) when the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, machine_count, fatal_count, warning_count, ir_version, backend_version
		FROM analysis_runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Seq, &r.MachineCount, &r.FatalCount, &r.WarningCount, &r.IRVersion, &r.BackendVersion); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run header.
// Returns ErrRunNotFound if the run does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seq, machine_count, fatal_count, warning_count, ir_version, backend_version
		FROM analysis_runs
		WHERE id = ?
	`, id).Scan(&r.ID, &r.Seq, &r.MachineCount, &r.FatalCount, &r.WarningCount, &r.IRVersion, &r.BackendVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return r, nil
}

// ReadRunMachines returns the machines a run covered, in analysis order.
func (s *Store) ReadRunMachines(ctx context.Context, runID string) ([]MachineRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, hash
		FROM run_machines
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run machines: %w", err)
	}
	defer rows.Close()

	refs := []MachineRef{}
	for rows.Next() {
		var m MachineRef
		if err := rows.Scan(&m.Name, &m.Hash); err != nil {
			return nil, fmt.Errorf("scan run machine: %w", err)
		}
		refs = append(refs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run machines: %w", err)
	}
	return refs, nil
}

// ReadDiagnostics returns a run's diagnostics in report order.
// Returns ErrRunNotFound if the run does not exist.
func (s *Store) ReadDiagnostics(ctx context.Context, runID string) ([]analysis.Diagnostic, error) {
	if _, err := s.ReadRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT machine, severity, code, start_state, transition_a, transition_b, condition, message
		FROM diagnostics
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	diags := []analysis.Diagnostic{}
	for rows.Next() {
		d, err := scanDiagnostic(rows)
		if err != nil {
			return nil, err
		}
		diags = append(diags, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostics: %w", err)
	}
	return diags, nil
}

func scanDiagnostic(rows *sql.Rows) (analysis.Diagnostic, error) {
	var (
		d        analysis.Diagnostic
		severity string
		ta, tb   sql.NullInt64
		cond     sql.NullInt64
	)
	if err := rows.Scan(&d.Machine, &severity, &d.Code, &d.StartState, &ta, &tb, &cond, &d.Message); err != nil {
		return analysis.Diagnostic{}, fmt.Errorf("scan diagnostic: %w", err)
	}
	d.Severity = analysis.Severity(severity)
	if ta.Valid {
		d.Transitions = append(d.Transitions, int(ta.Int64))
	}
	if tb.Valid {
		d.Transitions = append(d.Transitions, int(tb.Int64))
	}
	if cond.Valid {
		c := int(cond.Int64)
		d.Condition = &c
	}
	return d, nil
}

// LoadCheckpoint returns the checkpoint of an instance.
// Returns ErrCheckpointNotFound if none was saved.
func (s *Store) LoadCheckpoint(ctx context.Context, instanceID string) (Checkpoint, error) {
	var cp Checkpoint
	err := s.db.QueryRowContext(ctx, `
		SELECT instance_id, machine, machine_hash, pc, clock
		FROM checkpoints
		WHERE instance_id = ?
	`, instanceID).Scan(&cp.InstanceID, &cp.Machine, &cp.MachineHash, &cp.PC, &cp.Clock)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint{}, fmt.Errorf("%w: %s", ErrCheckpointNotFound, instanceID)
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("load checkpoint %s: %w", instanceID, err)
	}
	return cp, nil
}
