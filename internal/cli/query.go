package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reach/internal/queryir"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Database string
	RunID    string
	From     string
	To       string
	MaxCost  int64
	Kind     string
	Limit    int
}

// QueryResult holds the facts matching a query.
type QueryResult struct {
	RunID string            `json:"run_id"`
	Query queryir.FactQuery `json:"query"`
	Facts []TraceEvent      `json:"facts"`
	Count int               `json:"count"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the facts of a stored run",
		Long: `Query the facts of a stored run.

Filters combine with AND. Results are in derivation order, so the same
query over the same run always prints the same list.

Examples:
  reach query --db ./reach.db --run 01927c8e-... --from Tatooine
  reach query --db ./reach.db --run 01927c8e-... --to Hoth --max-cost 60
  reach query --db ./reach.db --run 01927c8e-... --kind composed --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to query (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringVar(&opts.From, "from", "", "only facts leaving this station")
	cmd.Flags().StringVar(&opts.To, "to", "", "only facts arriving at this station")
	cmd.Flags().Int64Var(&opts.MaxCost, "max-cost", 0, "only facts costing at most this much")
	cmd.Flags().StringVar(&opts.Kind, "kind", "any", "fact kind (any|direct|composed)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of facts (0 = all)")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	kind, err := queryir.ParseKind(opts.Kind)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid query", err)
	}
	q := queryir.FactQuery{
		Origin:      opts.From,
		Destination: opts.To,
		Kind:        kind,
		Limit:       opts.Limit,
	}
	if cmd.Flags().Changed("max-cost") {
		maxCost := opts.MaxCost
		q.MaxCost = &maxCost
	}
	if err := q.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid query", err)
	}

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.ReadRun(ctx, opts.RunID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	ds, err := st.QueryFacts(ctx, opts.RunID, q)
	if err != nil {
		return WrapExitError(ExitCommandError, "query failed", err)
	}

	result := QueryResult{
		RunID: opts.RunID,
		Query: q,
		Facts: buildTimeline(ds, ""),
		Count: len(ds),
	}

	if opts.Format == "json" {
		formatter := newFormatter(opts.RootOptions, cmd)
		return formatter.JSON(CLIResponse{Status: "ok", Data: result, RunID: opts.RunID})
	}

	w := cmd.OutOrStdout()
	if result.Count == 0 {
		fmt.Fprintln(w, "No matching facts.")
		return nil
	}
	for _, f := range result.Facts {
		fmt.Fprintf(w, "  %s\n", formatEvent(f, opts.Verbose))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d fact(s)\n", result.Count)
	return nil
}
