package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reach/internal/ir"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database   string
	Incomplete bool
	SameInput  string // run ID; list runs sharing its network hash
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		Long: `List the runs stored in a database, oldest first.

With --incomplete only runs that stopped before their fixed point, or whose
stored facts no longer match their hashes, are listed. With --same-input
only runs computed from the same edges and ceiling as the given run are
listed.

Examples:
  reach runs --db ./reach.db
  reach runs --db ./reach.db --same-input 01927c8e-...
  reach runs --db ./reach.db --incomplete --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.Incomplete, "incomplete", false, "only list incomplete runs")
	cmd.Flags().StringVar(&opts.SameInput, "same-input", "", "only list runs with the same network and ceiling as this run")
	cmd.MarkFlagsMutuallyExclusive("incomplete", "same-input")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []ir.Run
	switch {
	case opts.SameInput != "":
		ref, err := st.ReadRun(ctx, opts.SameInput)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.SameInput))
			}
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		runs, err = st.FindRunsByNetwork(ctx, ref.NetworkHash)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find runs", err)
		}
	case opts.Incomplete:
		states, err := st.FindIncompleteRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find incomplete runs", err)
		}
		for _, s := range states {
			runs = append(runs, s.Run)
		}
	default:
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	// Edges are the run's input and can be large; listings leave them out.
	for i := range runs {
		runs[i].Edges = nil
	}
	if runs == nil {
		runs = []ir.Run{}
	}

	if opts.Format == "json" {
		formatter := newFormatter(opts.RootOptions, cmd)
		return formatter.JSON(CLIResponse{Status: "ok", Data: runs})
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-12s %-9s %4d fact(s)  %d pass(es)  ceiling %d\n",
			r.ID, r.Network, r.State, r.FactCount, r.Passes, r.Ceiling)
	}
	return nil
}
