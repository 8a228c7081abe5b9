package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/reach/internal/engine"
	"github.com/roach88/reach/internal/rules"
	"github.com/roach88/reach/internal/store"
	"github.com/roach88/reach/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a fixed run ID against a private store.
type Harness struct {
	store  *store.Store
	runIDs engine.RunIDGenerator
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Build the scenario network
// 3. Compute the closure under the fixed run ID
// 4. Store the run and read its derivations back as the trace
// 5. Evaluate assertions against the trace and the stored facts
//
// An error is returned only when the scenario could not be executed. A
// closure that hits the pass limit is a failed result, not an error.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		runIDs: testutil.NewFixedRunIDGenerator(scenario.RunID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	result := NewResult()
	if err := h.execute(ctx, scenario, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
		RunID: result.RunID,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// execute computes and stores the scenario closure, then fills the trace
// from the store.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) error {
	maxPasses := scenario.MaxPasses
	if maxPasses == 0 {
		maxPasses = engine.DefaultMaxPasses
	}

	runID := h.runIDs.Generate()
	out, runErr := rules.Execute(ctx, scenario.Network(), rules.RunConfig{
		RunID:     runID,
		Ceiling:   scenario.CeilingOr(rules.DefaultCeiling),
		MaxPasses: maxPasses,
	})
	if out == nil {
		return fmt.Errorf("failed to execute scenario %s: %w", scenario.Name, runErr)
	}
	if runErr != nil {
		if !engine.IsPassLimitError(runErr) {
			return fmt.Errorf("failed to execute scenario %s: %w", scenario.Name, runErr)
		}
		result.AddError(fmt.Sprintf("closure did not converge: %v", runErr))
	}

	if _, err := h.store.WriteRun(ctx, out.Run, out.Derivations); err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}

	ds, err := h.store.ReadDerivations(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}
	for _, d := range ds {
		result.AddFactTrace(d)
	}
	result.RunID = runID
	result.Passes = out.Run.Passes

	h.logger.Info("scenario executed",
		"scenario", scenario.Name,
		"run_id", runID,
		"passes", out.Run.Passes,
		"facts", len(ds),
		"state", out.Run.State,
	)
	return nil
}
