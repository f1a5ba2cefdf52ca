package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/amc/internal/am"
	"github.com/roach88/amc/internal/analysis"
	"github.com/roach88/amc/internal/scheduler"
	"github.com/roach88/amc/internal/store"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	DBPath string
	Jobs   int
}

// CheckResult is the outcome of a race-liability check.
type CheckResult struct {
	RunID       string                `json:"run_id,omitempty"`
	Machines    []store.MachineRef    `json:"machines"`
	Diagnostics []analysis.Diagnostic `json:"diagnostics"`
	Summary     analysis.Summary      `json:"summary"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <specs-dir>",
		Short: "Check machines for timing-dependent choices",
		Long: `Run the race-liability analysis over every machine.

For each decision episode the analysis enumerates the selection paths
and reports pairs whose choice of transition depends on token arrival
order. Such warnings are advisory. Fatal diagnostics (malformed or
invalid controllers) fail the command.

Exit codes:
  0 - No fatal diagnostics (warnings allowed)
  1 - At least one fatal diagnostic
  2 - Command error (invalid paths, database errors, etc.)

Examples:
  amc check ./machines
  amc check ./machines --db amc.db --jobs 8
  amc check ./machines --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "store the run in this SQLite database")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", 0, "max concurrent analysis units (0 = GOMAXPROCS)")

	return cmd
}

func runCheck(opts *CheckOptions, specsDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd)
	ctx := commandContext(cmd)

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeFailFast)
	if loadResult == nil {
		return outputLoadFailure(formatter, loadErrors[0])
	}
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	analysisOpts := []analysis.Option{analysis.WithLogger(logger)}
	if opts.Jobs > 0 {
		analysisOpts = append(analysisOpts, analysis.WithConcurrency(opts.Jobs))
	}
	diags, err := analysis.Analyze(ctx, loadResult.Machines, analysisOpts...)
	if err != nil {
		return formatter.CommandError(ErrCodeGeneric, fmt.Sprintf("analysis: %v", err))
	}

	result := CheckResult{
		Machines:    make([]store.MachineRef, 0, len(loadResult.Machines)),
		Diagnostics: diags,
		Summary:     analysis.Summarize(diags),
	}
	for _, m := range loadResult.Machines {
		hash, err := am.MachineHash(m)
		if err != nil {
			return formatter.CommandError(ErrCodeGeneric, fmt.Sprintf("hashing machine %s: %v", m.Name, err))
		}
		result.Machines = append(result.Machines, store.MachineRef{Name: m.Name, Hash: hash})
	}

	if opts.DBPath != "" {
		runID, err := persistRun(ctx, opts.DBPath, result.Machines, diags)
		if err != nil {
			return formatter.CommandError(ErrCodeStore, err.Error())
		}
		result.RunID = runID
		logger.Debug("stored analysis run", "run_id", runID, "db", opts.DBPath)
	}

	return outputCheck(formatter, result)
}

// persistRun writes one analysis run and returns its ID.
func persistRun(ctx context.Context, dbPath string, machines []store.MachineRef, diags []analysis.Diagnostic) (string, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer st.Close()

	id := scheduler.UUIDv7Generator{}.Generate()
	if _, err := st.WriteRun(ctx, id, machines, diags); err != nil {
		return "", err
	}
	return id, nil
}

// outputCheck prints the diagnostics; exit code 1 iff a fatal exists.
func outputCheck(formatter *OutputFormatter, result CheckResult) error {
	failed := result.Summary.HasFatal()

	if formatter.JSON() {
		if !failed {
			return formatter.Success(result)
		}
		first := firstFatal(result.Diagnostics)
		if err := formatter.Failure(first.Code, first.Message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("check failed with %d fatal diagnostic(s)", result.Summary.Fatals))
	}

	w := formatter.Writer
	for _, d := range result.Diagnostics {
		fmt.Fprintln(w, d.String())
	}
	if len(result.Diagnostics) > 0 {
		fmt.Fprintln(w)
	}

	mark := "✓"
	if failed {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s Checked %d machine(s): %d fatal, %d warning(s)\n",
		mark, len(result.Machines), result.Summary.Fatals, result.Summary.Warnings)
	if result.RunID != "" {
		fmt.Fprintf(w, "Stored run %s\n", result.RunID)
	}

	if failed {
		return NewExitError(ExitFailure, fmt.Sprintf("check failed with %d fatal diagnostic(s)", result.Summary.Fatals))
	}
	return nil
}

func firstFatal(diags []analysis.Diagnostic) analysis.Diagnostic {
	for _, d := range diags {
		if d.Severity == analysis.SeverityFatal {
			return d
		}
	}
	return analysis.Diagnostic{}
}
