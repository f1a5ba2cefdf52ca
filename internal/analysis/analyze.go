package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/amc/internal/am"
	"github.com/roach88/amc/internal/logging"
)

// options configures Analyze.
type options struct {
	concurrency int
	logger      *slog.Logger
}

// Option configures Analyze.
type Option func(*options)

// WithConcurrency bounds the number of start states analyzed at once.
// Values below 1 mean GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// AnalyzeMachine runs the locator, the enumerator and the checker for every
// start state of actx.Machine, in start-state order.
func AnalyzeMachine(actx *Context) {
	starts := StartStates(actx)
	actx.Logger.Debug("located start states", "machine", actx.Machine.Name, "count", len(starts))
	for _, s := range starts {
		CheckRaces(actx, s, EnumeratePaths(actx, s))
	}
}

// unit is one independent (machine, start state) analysis.
type unit struct {
	machine int
	start   int
	out     *Collector
}

// Analyze checks every start state of every machine.
//
// Start states are independent and run in parallel on a bounded errgroup.
// Results are merged in (machine, start state) order, each machine's
// locator findings first, so the output is the same on every run. It
// fails on ctx's error or on a machine that does not pass am.CheckShapes.
func Analyze(ctx context.Context, machines []*am.ActorMachine, opts ...Option) ([]Diagnostic, error) {
	for _, m := range machines {
		if err := am.CheckShapes(m); err != nil {
			return nil, fmt.Errorf("analyze: %w", err)
		}
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.concurrency < 1 {
		o.concurrency = runtime.GOMAXPROCS(0)
	}
	logger := logging.OrNop(o.logger)

	located := make([]*Collector, len(machines))
	var units []*unit
	for i, m := range machines {
		located[i] = NewCollector()
		starts := StartStates(NewContext(m, located[i], logger))
		logger.Debug("located start states", "machine", m.Name, "count", len(starts))
		for _, s := range starts {
			units = append(units, &unit{machine: i, start: s, out: NewCollector()})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, u := range units {
		u := u
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			actx := NewContext(machines[u.machine], u.out, logger)
			CheckRaces(actx, u.start, EnumeratePaths(actx, u.start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	diags := []Diagnostic{}
	next := 0
	for i := range machines {
		diags = append(diags, located[i].Diagnostics()...)
		for next < len(units) && units[next].machine == i {
			diags = append(diags, units[next].out.Diagnostics()...)
			next++
		}
	}

	summary := Summarize(diags)
	logger.Debug("analysis complete",
		"machines", len(machines),
		"units", len(units),
		"fatals", summary.Fatals,
		"warnings", summary.Warnings)

	return diags, nil
}
