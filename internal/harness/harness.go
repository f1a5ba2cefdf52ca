package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/amc/internal/am"
	"github.com/roach88/amc/internal/compiler"
	"github.com/roach88/amc/internal/logging"
	"github.com/roach88/amc/internal/scheduler"
	"github.com/roach88/amc/internal/store"
	"github.com/roach88/amc/internal/testutil"
)

// Harness executes one scenario against a real scheduler instance.
type Harness struct {
	store  *store.Store
	ids    scheduler.IDGenerator
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithIDGenerator sets the generator for instance IDs when the scenario
// names none. Default: UUIDv7.
func WithIDGenerator(g scheduler.IDGenerator) Option {
	return func(h *Harness) {
		h.ids = g
	}
}

// WithStore enables checkpoint restore and save.
func WithStore(st *store.Store) Option {
	return func(h *Harness) {
		h.store = st
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load and compile the machines in scenario.Specs
//  2. Synthesize the actor's scheduler
//  3. Restore the instance from its checkpoint, if a store is configured
//  4. Run each step and compare with its expect clause
//  5. Save the final checkpoint, if a store is configured
//
// Expectation mismatches are recorded in Result.Errors. An error is
// returned only when the scenario cannot be executed at all.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		ids:   scheduler.UUIDv7Generator{},
		clock: testutil.NewDeterministicClock(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logging.OrNop(h.logger)

	m, err := loadActor(scenario.Specs, scenario.Actor)
	if err != nil {
		return nil, err
	}

	var synthOpts []scheduler.Option
	if scenario.MaxOps > 0 {
		synthOpts = append(synthOpts, scheduler.WithMaxOps(scenario.MaxOps))
	}
	prog, err := scheduler.Synthesize(m, synthOpts...)
	if err != nil {
		return nil, err
	}

	id := scenario.Instance
	if id == "" {
		id = h.ids.Generate()
	}

	e := newEnv()
	inst, err := prog.NewInstance(id, e.bindings(m), scheduler.WithSequencer(h.clock))
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.Machine = m.Name
	result.Instance = id

	if h.store != nil && scenario.Instance != "" {
		restored, err := h.restore(ctx, inst)
		if err != nil {
			return nil, err
		}
		result.Restored = restored
	}

	for i, step := range scenario.Steps {
		e.apply(step)
		event := h.runStep(ctx, inst, i)
		result.Trace = append(result.Trace, event)

		if step.Expect != nil {
			for _, msg := range checkExpect(i, step.Expect, event) {
				result.AddError(msg)
			}
		}

		h.logger.Debug("step completed",
			"scenario", scenario.Name,
			"instance", id,
			"step", i,
			"outcome", event.Outcome,
			"pc", event.PC,
		)
	}
	result.FinalPC = inst.PC()

	if h.store != nil {
		cp := store.Checkpoint{
			InstanceID:  id,
			Machine:     m.Name,
			MachineHash: prog.Hash(),
			PC:          inst.PC(),
			Clock:       h.clock.Current(),
		}
		if err := h.store.SaveCheckpoint(ctx, cp); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// restore positions inst at its stored checkpoint. A checkpoint taken
// against a different machine hash is refused.
func (h *Harness) restore(ctx context.Context, inst *scheduler.Instance) (bool, error) {
	cp, err := h.store.LoadCheckpoint(ctx, inst.ID())
	if errors.Is(err, store.ErrCheckpointNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if cp.MachineHash != inst.Program().Hash() {
		return false, fmt.Errorf("checkpoint %s was taken against machine %s hash %s, current hash is %s",
			cp.InstanceID, cp.Machine, cp.MachineHash, inst.Program().Hash())
	}
	if err := inst.Restore(cp.PC); err != nil {
		return false, err
	}
	h.clock.Set(cp.Clock)

	h.logger.Info("instance restored",
		"instance", cp.InstanceID,
		"pc", cp.PC,
		"clock", cp.Clock,
	)
	return true, nil
}

// runStep invokes the scheduler once and records what it observed.
func (h *Harness) runStep(ctx context.Context, inst *scheduler.Instance, i int) TraceEvent {
	event := TraceEvent{Step: i, Fired: []string{}}

	res, err := inst.Step(ctx)
	for _, f := range res.Firings {
		event.Fired = append(event.Fired, f.Name)
	}
	if err != nil {
		event.Outcome = OutcomeError
		event.Error = err.Error()
		event.PC = inst.PC()
		return event
	}

	event.Outcome = string(res.Outcome)
	event.PC = res.PC
	for _, b := range res.Blocked {
		event.Blocked = append(event.Blocked, PortBlock{
			Port:      b.Port,
			Direction: b.Direction,
			Deficit:   b.Deficit,
		})
	}
	return event
}

// loadActor compiles the machines in dir and returns the named one.
func loadActor(dir, actor string) (*am.ActorMachine, error) {
	v, _, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	machines, errs := compiler.CompileMachines(v, true)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	for _, m := range machines {
		if m.Name == actor {
			return m, nil
		}
	}
	return nil, fmt.Errorf("actor %q not found in %s", actor, dir)
}
