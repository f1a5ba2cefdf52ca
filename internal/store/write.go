package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/amc/internal/am"
	"github.com/roach88/amc/internal/analysis"
)

// MachineRef identifies one machine covered by a run.
type MachineRef struct {
	Name string `json:"name"`
	Hash string `json:"hash"`
}

// Run is the header of a persisted analysis run.
type Run struct {
	ID             string `json:"id"`
	Seq            int64  `json:"seq"`
	MachineCount   int    `json:"machine_count"`
	FatalCount     int    `json:"fatal_count"`
	WarningCount   int    `json:"warning_count"`
	IRVersion      string `json:"ir_version"`
	BackendVersion string `json:"backend_version"`
}

// WriteRun persists one analysis run atomically: the header, the machines
// and every diagnostic in report order. The run's seq is assigned here as
// one past the highest existing seq.
//
// Every diagnostic must name a machine listed in machines.
func (s *Store) WriteRun(ctx context.Context, id string, machines []MachineRef, diags []analysis.Diagnostic) (Run, error) {
	hashes := make(map[string]string, len(machines))
	for _, m := range machines {
		hashes[m.Name] = m.Hash
	}
	for i, d := range diags {
		if _, ok := hashes[d.Machine]; !ok {
			return Run{}, fmt.Errorf("write run: diagnostic %d names unknown machine %q", i, d.Machine)
		}
	}

	summary := analysis.Summarize(diags)
	run := Run{
		ID:             id,
		MachineCount:   len(machines),
		FatalCount:     summary.Fatals,
		WarningCount:   summary.Warnings,
		IRVersion:      am.IRVersion,
		BackendVersion: am.BackendVersion,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM analysis_runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analysis_runs
		(id, seq, machine_count, fatal_count, warning_count, ir_version, backend_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Seq, run.MachineCount, run.FatalCount, run.WarningCount, run.IRVersion, run.BackendVersion)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	for i, m := range machines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_machines (run_id, position, name, hash)
			VALUES (?, ?, ?, ?)
		`, run.ID, i, m.Name, m.Hash)
		if err != nil {
			return Run{}, fmt.Errorf("write run machine %q: %w", m.Name, err)
		}
	}

	for i, d := range diags {
		var ta, tb, cond sql.NullInt64
		if len(d.Transitions) > 0 {
			ta = sql.NullInt64{Int64: int64(d.Transitions[0]), Valid: true}
		}
		if len(d.Transitions) > 1 {
			tb = sql.NullInt64{Int64: int64(d.Transitions[1]), Valid: true}
		}
		if d.Condition != nil {
			cond = sql.NullInt64{Int64: int64(*d.Condition), Valid: true}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO diagnostics
			(run_id, seq, machine, machine_hash, severity, code, start_state, transition_a, transition_b, condition, message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i+1, d.Machine, hashes[d.Machine], string(d.Severity), d.Code, d.StartState, ta, tb, cond, d.Message)
		if err != nil {
			return Run{}, fmt.Errorf("write diagnostic %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}
	return run, nil
}

// Checkpoint is the persisted program counter of one instance.
type Checkpoint struct {
	InstanceID  string `json:"instance_id"`
	Machine     string `json:"machine"`
	MachineHash string `json:"machine_hash"`
	PC          int    `json:"pc"`
	Clock       int64  `json:"clock"`
}

// SaveCheckpoint inserts or replaces the checkpoint of an instance.
func (s *Store) SaveCheckpoint(ctx context.Context, cp Checkpoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (instance_id, machine, machine_hash, pc, clock)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(instance_id) DO UPDATE SET
			machine = excluded.machine,
			machine_hash = excluded.machine_hash,
			pc = excluded.pc,
			clock = excluded.clock
	`, cp.InstanceID, cp.Machine, cp.MachineHash, cp.PC, cp.Clock)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.InstanceID, err)
	}
	return nil
}
