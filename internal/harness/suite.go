package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ScenarioNotFoundError is returned when a listed scenario file doesn't exist.
type ScenarioNotFoundError struct {
	ScenarioPath string
	ResolvedPath string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf(
		"scenario file %q does not exist (resolved to: %s)",
		e.ScenarioPath,
		e.ResolvedPath,
	)
}

// ResolveScenarios resolves scenario paths relative to baseDir and checks
// that each exists.
func ResolveScenarios(paths []string, baseDir string) ([]string, error) {
	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		full := p
		if !filepath.IsAbs(full) && baseDir != "" {
			full = filepath.Join(baseDir, full)
		}
		if _, err := os.Stat(full); os.IsNotExist(err) {
			return nil, &ScenarioNotFoundError{ScenarioPath: p, ResolvedPath: full}
		}
		resolved = append(resolved, full)
	}
	return resolved, nil
}

// ScenarioOutcome is the result of one scenario file in a suite.
type ScenarioOutcome struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Pass     bool      `json:"pass"`
	Errors   []string  `json:"errors,omitempty"`
	Scenario *Scenario `json:"-"`
	Result   *Result   `json:"-"`
}

// SuiteResult summarizes a suite run.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Scenarios      []ScenarioOutcome `json:"scenarios"`
}

// RunSuite loads and runs every scenario file in order.
//
// Load and execution problems fail the scenario they belong to; the suite
// keeps going. Only context cancellation stops it early.
func RunSuite(ctx context.Context, paths []string) (*SuiteResult, error) {
	result := &SuiteResult{Scenarios: make([]ScenarioOutcome, 0, len(paths))}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.TotalScenarios++

		outcome := ScenarioOutcome{Path: path, Name: filepath.Base(path)}

		scenario, err := LoadScenario(path)
		if err != nil {
			outcome.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
			result.record(outcome)
			continue
		}
		outcome.Name = scenario.Name
		outcome.Scenario = scenario

		runResult, err := RunContext(ctx, scenario)
		if err != nil {
			outcome.Errors = []string{fmt.Sprintf("scenario execution failed: %v", err)}
			result.record(outcome)
			continue
		}
		outcome.Result = runResult
		outcome.Pass = runResult.Pass
		outcome.Errors = runResult.Errors
		result.record(outcome)
	}

	return result, nil
}

// Fail marks a recorded outcome as failed with an extra error, keeping the
// counters consistent. Used for checks made after the run, such as golden
// comparison.
func (r *SuiteResult) Fail(i int, msg string) {
	o := &r.Scenarios[i]
	if o.Pass {
		o.Pass = false
		r.Passed--
		r.Failed++
	}
	o.Errors = append(o.Errors, msg)
}

func (r *SuiteResult) record(o ScenarioOutcome) {
	if o.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
	r.Scenarios = append(r.Scenarios, o)
}
