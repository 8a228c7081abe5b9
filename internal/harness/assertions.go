package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/reach/internal/queryir"
	"github.com/roach88/reach/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s -> %s via %s (%d)\n",
				event.Seq, event.Origin, event.Destination, event.Label, event.Cost)
		}
	}

	return buf.String()
}

// describe renders the fact pattern of a presence assertion.
func (a Assertion) describe() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%s -> %s", a.From, a.To))
	if a.Label != "" {
		parts = append(parts, fmt.Sprintf("label %q", a.Label))
	}
	if a.Cost != nil {
		parts = append(parts, fmt.Sprintf("cost %d", *a.Cost))
	}
	return strings.Join(parts, ", ")
}

// assertFactPresent checks that some traced fact matches the pattern.
func assertFactPresent(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if assertion.matches(event.Fact()) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertFactPresent,
		Expected: "fact " + assertion.describe(),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertFactAbsent checks that no traced fact matches the pattern.
func assertFactAbsent(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if assertion.matches(event.Fact()) {
			return &AssertionError{
				Type:     AssertFactAbsent,
				Expected: "no fact " + assertion.describe(),
				Actual:   fmt.Sprintf("found at seq %d with label %q", event.Seq, event.Label),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertMaxCost checks that every traced fact is within the bound.
func assertMaxCost(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Cost > *assertion.Cost {
			return &AssertionError{
				Type:     AssertMaxCost,
				Expected: fmt.Sprintf("every cost <= %d", *assertion.Cost),
				Actual: fmt.Sprintf("%s -> %s via %s costs %d",
					event.Origin, event.Destination, event.Label, event.Cost),
			}
		}
	}
	return nil
}

// assertFactCount counts stored facts through a fact query, so the count
// reflects what was persisted rather than what the engine reported.
func assertFactCount(ctx context.Context, st *store.Store, runID string, assertion Assertion) error {
	kind, err := queryir.ParseKind(assertion.Kind)
	if err != nil {
		return err
	}

	ds, err := st.QueryFacts(ctx, runID, queryir.FactQuery{Kind: kind})
	if err != nil {
		return &AssertionError{
			Type:     AssertFactCount,
			Expected: fmt.Sprintf("query %s facts", kind),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	if len(ds) != *assertion.Count {
		return &AssertionError{
			Type:     AssertFactCount,
			Expected: fmt.Sprintf("%d %s facts", *assertion.Count, kind),
			Actual:   fmt.Sprintf("%d facts", len(ds)),
		}
	}
	return nil
}

// assertPairCount counts the stored facts joining one origin/destination
// pair. More than one means several labels reached the pair.
func assertPairCount(ctx context.Context, st *store.Store, runID string, assertion Assertion) error {
	ds, err := st.QueryFacts(ctx, runID, queryir.FactQuery{
		Origin:      assertion.From,
		Destination: assertion.To,
	})
	if err != nil {
		return &AssertionError{
			Type:     AssertPairCount,
			Expected: fmt.Sprintf("query %s -> %s", assertion.From, assertion.To),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	if len(ds) != *assertion.Count {
		labels := make([]string, len(ds))
		for i, d := range ds {
			labels[i] = d.Fact.Label
		}
		return &AssertionError{
			Type:     AssertPairCount,
			Expected: fmt.Sprintf("%d facts %s -> %s", *assertion.Count, assertion.From, assertion.To),
			Actual:   fmt.Sprintf("%d facts %v", len(ds), labels),
		}
	}
	return nil
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
	RunID string
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for fact_count and pair_count
// assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFactPresent:
			err = assertFactPresent(result.Trace, assertion)
		case AssertFactAbsent:
			err = assertFactAbsent(result.Trace, assertion)
		case AssertMaxCost:
			err = assertMaxCost(result.Trace, assertion)
		case AssertFactCount, AssertPairCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires database context", i, assertion.Type)
				break
			}
			ctx := actx.Ctx
			if ctx == nil {
				ctx = context.Background()
			}
			if assertion.Type == AssertFactCount {
				err = assertFactCount(ctx, actx.Store, actx.RunID, assertion)
			} else {
				err = assertPairCount(ctx, actx.Store, actx.RunID, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
