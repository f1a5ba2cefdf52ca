package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/amc/internal/analysis"
	"github.com/roach88/amc/internal/store"
)

// StoreOptions holds flags shared by the store inspection commands.
type StoreOptions struct {
	*RootOptions
	DBPath string
	RunID  string
}

// RunDetail is a stored run with its machines and diagnostics.
type RunDetail struct {
	Run         store.Run             `json:"run"`
	Machines    []store.MachineRef    `json:"machines"`
	Diagnostics []analysis.Diagnostic `json:"diagnostics"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored analysis runs",
		Long: `List the analysis runs recorded by "amc check --db", oldest first.

Examples:
  amc runs --db amc.db
  amc runs --db amc.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// NewDiagnosticsCommand creates the diagnostics command.
func NewDiagnosticsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Show the diagnostics of a stored run",
		Long: `Show one stored analysis run: its machines with their hashes and the
diagnostics in the order the analysis reported them.

Examples:
  amc diagnostics --db amc.db --run 01928c3e-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnostics(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func runRuns(opts *StoreOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return formatter.CommandError(ErrCodeStore, err.Error())
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return formatter.CommandError(ErrCodeStore, err.Error())
	}

	if formatter.JSON() {
		return formatter.Success(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tMACHINES\tFATAL\tWARNINGS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\n", r.Seq, r.ID, r.MachineCount, r.FatalCount, r.WarningCount)
	}
	return tw.Flush()
}

func runDiagnostics(opts *StoreOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return formatter.CommandError(ErrCodeStore, err.Error())
	}
	defer st.Close()

	detail, err := readRunDetail(ctx, st, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.CommandError(ErrCodeNotFound, fmt.Sprintf("run %s not found", opts.RunID))
	}
	if err != nil {
		return formatter.CommandError(ErrCodeStore, err.Error())
	}

	if formatter.JSON() {
		return formatter.Success(detail)
	}

	w := formatter.Writer
	r := detail.Run
	fmt.Fprintf(w, "Run %s (seq %d, ir %s, backend %s)\n", r.ID, r.Seq, r.IRVersion, r.BackendVersion)
	fmt.Fprintln(w, "Machines:")
	for _, m := range detail.Machines {
		fmt.Fprintf(w, "  %s [%s]\n", m.Name, shortHash(m.Hash))
	}
	fmt.Fprintln(w)
	for _, d := range detail.Diagnostics {
		fmt.Fprintln(w, d.String())
	}
	fmt.Fprintf(w, "%d fatal, %d warning(s)\n", r.FatalCount, r.WarningCount)
	return nil
}

func readRunDetail(ctx context.Context, st *store.Store, id string) (RunDetail, error) {
	run, err := st.ReadRun(ctx, id)
	if err != nil {
		return RunDetail{}, err
	}
	machines, err := st.ReadRunMachines(ctx, id)
	if err != nil {
		return RunDetail{}, err
	}
	diags, err := st.ReadDiagnostics(ctx, id)
	if err != nil {
		return RunDetail{}, err
	}
	return RunDetail{Run: run, Machines: machines, Diagnostics: diags}, nil
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
