package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/amc/internal/scheduler"
)

// ScheduleOptions holds flags for the schedule command.
type ScheduleOptions struct {
	*RootOptions
	Actor string
}

// ScheduleResult describes one synthesized scheduler.
type ScheduleResult struct {
	Machine     string `json:"machine"`
	Hash        string `json:"hash"`
	Entry       int    `json:"entry"`
	ResumeTable []int  `json:"resume_table"`
	MaxOps      int    `json:"max_ops"`
	Listing     string `json:"listing"`
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScheduleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schedule <specs-dir>",
		Short: "Synthesize and print per-actor schedulers",
		Long: `Synthesize the scheduler of each machine and print its dispatch table:
the entry state, the resume table (every Wait target) and the lowered
instruction listing.

Malformed machines are rejected before synthesis.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "actor", "", "only this machine")

	return cmd
}

func runSchedule(opts *ScheduleOptions, specsDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeFailFast)
	if loadResult == nil {
		return outputLoadFailure(formatter, loadErrors[0])
	}
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	results := []ScheduleResult{}
	for _, m := range loadResult.Machines {
		if opts.Actor != "" && m.Name != opts.Actor {
			continue
		}
		prog, err := scheduler.Synthesize(m)
		if err != nil {
			var synthErr *scheduler.SynthesisError
			if errors.As(err, &synthErr) && len(synthErr.Errors) > 0 {
				_ = formatter.Failure(synthErr.Errors[0].Code, err.Error(), synthErr.Errors)
				if !formatter.JSON() {
					fmt.Fprintf(formatter.Writer, "✗ %v\n", err)
				}
				return WrapExitError(ExitFailure, "synthesis failed", err)
			}
			return formatter.CommandError(ErrCodeGeneric, err.Error())
		}
		results = append(results, ScheduleResult{
			Machine:     m.Name,
			Hash:        prog.Hash(),
			Entry:       prog.Entry(),
			ResumeTable: prog.ResumeTable(),
			MaxOps:      prog.MaxOps(),
			Listing:     prog.Listing(),
		})
	}

	if opts.Actor != "" && len(results) == 0 {
		return formatter.CommandError(ErrCodeNotFound, fmt.Sprintf("actor %q not found in %s", opts.Actor, specsDir))
	}

	if formatter.JSON() {
		return formatter.Success(results)
	}

	listings := make([]string, len(results))
	for i, r := range results {
		listings[i] = r.Listing
	}
	fmt.Fprint(formatter.Writer, strings.Join(listings, "\n"))
	return nil
}
