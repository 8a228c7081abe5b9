package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reach/internal/ir"
	"github.com/roach88/reach/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Rule     string // optional - timeline filter
}

// TraceEvent is one derivation in a run's timeline.
type TraceEvent struct {
	Seq         int64  `json:"seq"`
	Pass        int    `json:"pass"`
	Rule        string `json:"rule"`
	FactID      string `json:"fact_id"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Label       string `json:"label"`
	Cost        int64  `json:"cost"`
}

// ProvenanceNode is a fact together with the facts it was composed from.
type ProvenanceNode struct {
	TraceEvent
	Parents []ProvenanceNode `json:"parents,omitempty"`
}

// TraceResult holds the complete trace output. Timeline is set when the
// whole run is traced; Fact and Children when a single fact is.
type TraceResult struct {
	RunID    string          `json:"run_id"`
	Timeline []TraceEvent    `json:"timeline,omitempty"`
	Fact     *ProvenanceNode `json:"fact,omitempty"`
	Children []TraceEvent    `json:"children,omitempty"`
	Stats    TraceStats      `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int  `json:"total_events"`
	Passes      int  `json:"passes"`
	Depth       int  `json:"depth,omitempty"`
	Segments    int  `json:"segments,omitempty"`
	IsComplete  bool `json:"is_complete"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [fact-id]",
		Short: "Show how facts of a stored run were derived",
		Long: `Show the provenance of a stored run.

Without a fact ID, prints the run's timeline: every fact in the order it was
derived, with the pass and rule that produced it.

With a fact ID (or a unique prefix of one), prints the fact's provenance
tree down to the direct connections it was composed from, followed by the
facts that were built from it.

Examples:
  reach trace --db ./reach.db --run 01927c8e-...
  reach trace --db ./reach.db --run 01927c8e-... --rule bounded-composition
  reach trace --db ./reach.db --run 01927c8e-... 3f2a9c01
  reach trace --db ./reach.db --run 01927c8e-... 3f2a9c01 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			factID := ""
			if len(args) == 1 {
				factID = args[0]
			}
			return runTrace(opts, factID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to trace (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringVar(&opts.Rule, "rule", "", "timeline: only facts derived by this rule")

	return cmd
}

func runTrace(opts *TraceOptions, factID string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	state, err := st.GetRunState(ctx, opts.RunID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		return WrapExitError(ExitCommandError, "failed to get run state", err)
	}

	result := TraceResult{
		RunID: opts.RunID,
		Stats: TraceStats{
			Passes:     state.Run.Passes,
			IsComplete: state.IsComplete,
		},
	}

	if factID == "" {
		ds, err := st.ReadDerivations(ctx, opts.RunID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read derivations", err)
		}
		result.Timeline = buildTimeline(ds, opts.Rule)
		result.Stats.TotalEvents = len(result.Timeline)
	} else {
		root, err := buildProvenance(ctx, st, opts.RunID, factID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return NewExitError(ExitCommandError, fmt.Sprintf("fact not found in run %s: %s", opts.RunID, factID))
			}
			return WrapExitError(ExitCommandError, "failed to build provenance", err)
		}
		children, err := st.ReadChildren(ctx, opts.RunID, root.FactID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read children", err)
		}

		result.Fact = &root
		result.Children = buildTimeline(children, "")
		result.Stats.TotalEvents = countNodes(root)
		result.Stats.Depth = depth(root)
		result.Stats.Segments = len(ir.Fact{Label: root.Label}.Segments())
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

func toTraceEvent(d ir.Derivation) TraceEvent {
	return TraceEvent{
		Seq:         d.Seq,
		Pass:        d.Pass,
		Rule:        d.Rule,
		FactID:      d.FactID,
		Origin:      d.Fact.Origin,
		Destination: d.Fact.Destination,
		Label:       d.Fact.Label,
		Cost:        d.Fact.Cost,
	}
}

// buildTimeline converts derivations to timeline events, keeping only those
// produced by ruleFilter when it is set.
func buildTimeline(ds []ir.Derivation, ruleFilter string) []TraceEvent {
	timeline := make([]TraceEvent, 0, len(ds))
	for _, d := range ds {
		if ruleFilter != "" && d.Rule != ruleFilter {
			continue
		}
		timeline = append(timeline, toTraceEvent(d))
	}
	return timeline
}

// buildProvenance walks parent links from factID down to seed facts.
// Parents always precede their children, so the walk terminates.
func buildProvenance(ctx context.Context, st *store.Store, runID, factID string) (ProvenanceNode, error) {
	d, err := st.ReadDerivation(ctx, runID, factID)
	if err != nil {
		return ProvenanceNode{}, err
	}

	node := ProvenanceNode{TraceEvent: toTraceEvent(d)}
	for _, pid := range d.Parents {
		parent, err := buildProvenance(ctx, st, runID, pid)
		if err != nil {
			return ProvenanceNode{}, fmt.Errorf("parent of %s: %w", d.FactID, err)
		}
		node.Parents = append(node.Parents, parent)
	}
	return node, nil
}

func countNodes(n ProvenanceNode) int {
	total := 1
	for _, p := range n.Parents {
		total += countNodes(p)
	}
	return total
}

func depth(n ProvenanceNode) int {
	deepest := 0
	for _, p := range n.Parents {
		if d := depth(p); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	return formatter.JSON(CLIResponse{
		Status: "ok",
		Data:   result,
		RunID:  result.RunID,
	})
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.Fact == nil {
		fmt.Fprintf(w, "Trace for run: %s\n", result.RunID)
		fmt.Fprintln(w, strings.Repeat("=", 50))
		fmt.Fprintln(w)

		if len(result.Timeline) == 0 {
			fmt.Fprintln(w, "No facts found.")
			return nil
		}

		lastPass := -1
		for _, e := range result.Timeline {
			if e.Pass != lastPass {
				fmt.Fprintf(w, "Pass %d:\n", e.Pass)
				lastPass = e.Pass
			}
			fmt.Fprintf(w, "  [%d] %s\n", e.Seq, formatEvent(e, verbose))
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%d fact(s), %d pass(es), complete: %v\n",
			result.Stats.TotalEvents, result.Stats.Passes, result.Stats.IsComplete)
		return nil
	}

	root := result.Fact
	fmt.Fprintf(w, "Fact %s in run %s\n", root.FactID, result.RunID)
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Provenance:")
	writeNode(w, *root, 1, verbose)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Used by:")
	if len(result.Children) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, c := range result.Children {
		fmt.Fprintf(w, "  %s\n", formatEvent(c, verbose))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%d segment(s), depth %d\n", result.Stats.Segments, result.Stats.Depth)
	return nil
}

func writeNode(w io.Writer, n ProvenanceNode, level int, verbose bool) {
	fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", level), formatEvent(n.TraceEvent, verbose))
	for _, p := range n.Parents {
		writeNode(w, p, level+1, verbose)
	}
}

func formatEvent(e TraceEvent, verbose bool) string {
	s := fmt.Sprintf("%s → %s  %d  %s  (%s, pass %d)", e.Origin, e.Destination, e.Cost, e.Label, e.Rule, e.Pass)
	if verbose {
		s += " " + e.FactID
	}
	return s
}
