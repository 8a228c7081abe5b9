package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/reach/internal/compiler"
	"github.com/roach88/reach/internal/engine"
	"github.com/roach88/reach/internal/ir"
	"github.com/roach88/reach/internal/rules"
	"github.com/roach88/reach/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string
	Network   string
	Ceiling   int64
	MaxPasses int
	Metrics   string // file receiving the run's metrics in Prometheus text format

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator

	// Registry receives engine metrics. If nil, a fresh registry is used.
	Registry *prometheus.Registry
}

// RunOutput is the result of a closure run.
type RunOutput struct {
	Run    ir.Run    `json:"run"`
	Facts  []ir.Fact `json:"facts"`
	Stored bool      `json:"stored"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommandWith(&RunOptions{RootOptions: rootOpts})
}

func newRunCommandWith(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <networks-dir>",
		Short: "Compute the bounded-cost closure of a network",
		Long: `Compute every route reachable within the cost ceiling.

The network is compiled from the CUE files in the directory. Its direct
connections are seeded, then routes are composed pass by pass until a pass
derives nothing new. With --db the run, its facts and their provenance are
stored for query, trace and replay. With --metrics the engine counters
(passes, inserted facts, rule firings, run duration) are written to a file
in the Prometheus text format, suitable for the node exporter's textfile
collector.

The ceiling comes from --ceiling, then from the network's own "ceiling"
field, then defaults to 120.

Exit codes:
  0 - Closure converged
  1 - Pass limit reached or interrupted before convergence
  2 - Command error (invalid network, database error, etc.)

Example:
  reach run ./networks
  reach run --db ./reach.db --network Galactic ./networks
  reach run --ceiling 90 --format json ./networks
  reach run --metrics ./reach.prom ./networks`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClosure(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (optional)")
	cmd.Flags().StringVar(&opts.Network, "network", "", "network to run when several are defined")
	cmd.Flags().Int64Var(&opts.Ceiling, "ceiling", rules.DefaultCeiling, "maximum cost of a composed route")
	cmd.Flags().IntVar(&opts.MaxPasses, "max-passes", engine.DefaultMaxPasses, "stop after this many passes (0 = unlimited)")
	cmd.Flags().StringVar(&opts.Metrics, "metrics", "", "write engine metrics to this file (Prometheus text format)")

	return cmd
}

func runClosure(opts *RunOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	spec, err := loadSingleNetwork(dir, opts.Network)
	if err != nil {
		code, message := parseCompileError(err)
		_ = formatter.Error(code, message, nil)
		return WrapExitError(ExitCommandError, "failed to load network", err)
	}

	ceiling := spec.CeilingOr(rules.DefaultCeiling)
	if cmd.Flags().Changed("ceiling") {
		ceiling = opts.Ceiling
	}
	if ceiling < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("ceiling must be >= 0, got %d", ceiling))
	}
	if opts.MaxPasses < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("max passes must be >= 0, got %d", opts.MaxPasses))
	}

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	metrics, err := engine.NewMetrics(registry)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register metrics", err)
	}

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	net := spec.Build()
	slog.Info("running closure",
		"network", net.Name,
		"stations", len(net.Stations()),
		"routes", net.Len(),
		"ceiling", ceiling,
	)

	outcome, runErr := rules.Execute(ctx, net, rules.RunConfig{
		RunID:     runIDs.Generate(),
		Ceiling:   ceiling,
		MaxPasses: opts.MaxPasses,
		Metrics:   metrics,
	})
	if outcome == nil {
		return WrapExitError(ExitCommandError, "closure failed", runErr)
	}

	out := RunOutput{Run: outcome.Run, Facts: outcome.Facts}

	// Stopped runs are stored too; replay reports them as incomplete.
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		inserted, err := st.WriteRun(ctx, outcome.Run, outcome.Derivations)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to store run", err)
		}
		out.Stored = inserted
		slog.Info("run stored", "run_id", outcome.Run.ID, "db", opts.Database, "inserted", inserted)
	}

	// Stopped runs report their metrics too.
	if opts.Metrics != "" {
		if err := prometheus.WriteToTextfile(opts.Metrics, registry); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
		slog.Info("metrics written", "path", opts.Metrics)
	}

	if err := outputRun(formatter, out); err != nil {
		return err
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "closure did not converge", runErr)
	}
	return nil
}

// loadSingleNetwork compiles dir and picks one network from it.
func loadSingleNetwork(dir, name string) (*compiler.NetworkSpec, error) {
	loadResult, loadErrors := LoadNetworks(dir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	spec, err := SelectNetwork(loadResult, name)
	if err != nil {
		return nil, err
	}

	findings := compiler.Validate(spec)
	for _, f := range findings {
		if f.IsError() {
			return nil, &LoadError{Code: f.Code, Message: fmt.Sprintf("%s: %s", spec.Name, f.Message)}
		}
		slog.Warn("network warning", "network", spec.Name, "code", f.Code, "message", f.Message)
	}
	return spec, nil
}

func outputRun(formatter *OutputFormatter, out RunOutput) error {
	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: out, RunID: out.Run.ID})
	}

	w := formatter.Writer
	run := out.Run
	mark := "✓"
	if run.State != ir.RunConverged {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s %s after %d pass(es): %d fact(s), ceiling %d\n",
		mark, run.Network, run.State, run.Passes, run.FactCount, run.Ceiling)
	fmt.Fprintf(w, "  run:     %s\n", run.ID)
	fmt.Fprintf(w, "  closure: %s\n", run.ClosureHash)
	if out.Stored {
		fmt.Fprintln(w, "  stored")
	}
	fmt.Fprintln(w)

	for _, f := range out.Facts {
		fmt.Fprintf(w, "  %s → %s  %d  %s\n", f.Origin, f.Destination, f.Cost, f.Label)
	}
	return nil
}

// openExistingStore opens a database that must already exist. store.Open
// would silently create an empty one.
func openExistingStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
		}
		return nil, WrapExitError(ExitCommandError, "failed to access database", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
