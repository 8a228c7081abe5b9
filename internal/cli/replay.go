package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/reach/internal/engine"
	"github.com/roach88/reach/internal/rules"
	"github.com/roach88/reach/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	Network       string `json:"network"`
	State         string `json:"state"`
	Facts         int    `json:"facts"`
	DirectFacts   int    `json:"direct_facts"`
	ComposedFacts int    `json:"composed_facts"`
	MaxPass       int    `json:"max_pass"`
	StoredHash    string `json:"stored_hash"`
	ReplayedHash  string `json:"replayed_hash,omitempty"`
	IsComplete    bool   `json:"is_complete"`
	Deterministic bool   `json:"deterministic"`
	Reason        string `json:"reason,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Recompute stored runs and verify they reproduce",
		Long: `Recompute stored runs from their edges and ceiling and verify the
result is identical to what was stored.

For each run the stored facts are first checked against the recorded counts
and hashes. The network is then rebuilt from the stored edges, the closure
recomputed with the same ceiling and pass limit, and its closure hash
compared with the stored one.

Exit codes:
  0 - All runs reproduce exactly
  1 - Verification failed (tampered rows or a different closure)
  2 - Command error (database not found, unknown run, etc.)

Examples:
  reach replay --db ./reach.db
  reach replay --db ./reach.db --run 01927c8e-...
  reach replay --db ./reach.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var runIDs []string
	if opts.RunID != "" {
		runIDs = []string{opts.RunID}
	} else {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		for _, r := range runs {
			runIDs = append(runIDs, r.ID)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runIDs)),
		TotalRuns:        len(runIDs),
		AllDeterministic: true,
	}

	if len(runIDs) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found in database.")
		return nil
	}

	for _, id := range runIDs {
		runResult, err := replayAndVerifyRun(ctx, st, id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", id), err)
		}

		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replayAndVerifyRun checks a stored run and recomputes it.
func replayAndVerifyRun(ctx context.Context, st *store.Store, runID string) (ReplayRunResult, error) {
	state, err := st.GetRunState(ctx, runID)
	if err != nil {
		return ReplayRunResult{}, err
	}

	run := state.Run
	res := ReplayRunResult{
		RunID:         run.ID,
		Network:       run.Network,
		State:         run.State,
		Facts:         state.StoredFacts,
		DirectFacts:   state.DirectFacts,
		ComposedFacts: state.ComposedFacts,
		MaxPass:       state.MaxPass,
		StoredHash:    run.ClosureHash,
		IsComplete:    state.IsComplete,
	}

	switch {
	case !state.NetworkHashOK:
		res.Reason = "stored edges or ceiling do not match the network hash"
		return res, nil
	case !state.ClosureHashOK:
		res.Reason = "stored facts do not match the closure hash"
		return res, nil
	case state.StoredFacts != run.FactCount:
		res.Reason = fmt.Sprintf("%d facts stored, run records %d", state.StoredFacts, run.FactCount)
		return res, nil
	}

	outcome, err := rules.Execute(ctx, rules.Rebuild(run), rules.RunConfig{
		RunID:     run.ID,
		Ceiling:   run.Ceiling,
		MaxPasses: run.MaxPasses,
	})
	if outcome == nil {
		return res, err
	}
	// A run stored as stopped must stop again at the same pass.
	var rtErr *engine.RuntimeError
	if err != nil && !errors.As(err, &rtErr) {
		return res, err
	}

	res.ReplayedHash = outcome.Run.ClosureHash
	switch {
	case outcome.Run.State != run.State:
		res.Reason = fmt.Sprintf("replay %s, stored run %s", outcome.Run.State, run.State)
	case outcome.Run.ClosureHash != run.ClosureHash:
		res.Reason = "recomputed closure differs from stored closure"
	default:
		res.Deterministic = true
	}

	slog.Debug("run replayed",
		"run_id", run.ID,
		"deterministic", res.Deterministic,
		"stored_hash", run.ClosureHash,
		"replayed_hash", res.ReplayedHash,
	)
	return res, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_REPLAY",
			Message: "replay verification failed",
		}
	}

	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if err := formatter.JSON(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "replay verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s (%s)\n", status, run.RunID, run.Network)

		if verbose {
			fmt.Fprintf(w, "  Facts: %d (%d direct, %d composed)\n", run.Facts, run.DirectFacts, run.ComposedFacts)
			fmt.Fprintf(w, "  Last pass: %d\n", run.MaxPass)
			fmt.Fprintf(w, "  State: %s\n", run.State)
			fmt.Fprintf(w, "  Stored hash:   %s\n", run.StoredHash)
			fmt.Fprintf(w, "  Replayed hash: %s\n", run.ReplayedHash)
		} else {
			fmt.Fprintf(w, "  Facts: %d, state %s\n", run.Facts, run.State)
		}

		if !run.Deterministic {
			fmt.Fprintf(w, "  Warning: %s\n", run.Reason)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs reproduce exactly")
		return nil
	}

	fmt.Fprintln(w, "✗ Replay verification failed")
	return NewExitError(ExitFailure, "replay verification failed")
}
