package harness

import "github.com/roach88/reach/internal/ir"

// TraceEvent is one fact insertion, in the order the engine made it.
type TraceEvent struct {
	Seq         int64  `json:"seq"`
	Pass        int    `json:"pass"`
	Rule        string `json:"rule"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Label       string `json:"label"`
	Cost        int64  `json:"cost"`
}

// Fact returns the fact this event inserted.
func (e TraceEvent) Fact() ir.Fact {
	return ir.Fact{
		Origin:      e.Origin,
		Destination: e.Destination,
		Label:       e.Label,
		Cost:        e.Cost,
	}
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the closure converged and every assertion held.
	Pass bool `json:"pass"`

	// RunID is the run identifier the closure was stored under.
	RunID string `json:"run_id"`

	// Passes is the number of engine passes, the final empty pass included.
	Passes int `json:"passes"`

	// Trace contains every fact insertion in seq order, as read back from
	// the store.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures and convergence problems.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddFactTrace appends a derivation to the trace.
func (r *Result) AddFactTrace(d ir.Derivation) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:         d.Seq,
		Pass:        d.Pass,
		Rule:        d.Rule,
		Origin:      d.Fact.Origin,
		Destination: d.Fact.Destination,
		Label:       d.Fact.Label,
		Cost:        d.Fact.Cost,
	})
}

// Facts returns the traced facts in insertion order.
func (r *Result) Facts() []ir.Fact {
	out := make([]ir.Fact, len(r.Trace))
	for i, e := range r.Trace {
		out[i] = e.Fact()
	}
	return out
}
