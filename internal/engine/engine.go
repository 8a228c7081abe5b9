package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/reach/internal/facts"
	"github.com/roach88/reach/internal/ir"
)

// State is the engine's position in its two-state lifecycle.
type State int

const (
	// StateRunning means another pass may still insert facts.
	StateRunning State = iota

	// StateConverged means the last pass inserted nothing. Terminal until
	// new facts are seeded.
	StateConverged
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateConverged:
		return "converged"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RuleStats summarizes one rule's evaluation within a pass.
type RuleStats struct {
	Rule       string `json:"rule"`
	Fired      bool   `json:"fired"`
	Candidates int    `json:"candidates"`
	Inserted   int    `json:"inserted"`
}

// PassStats summarizes one engine pass.
type PassStats struct {
	Pass     int         `json:"pass"`
	Inserted int         `json:"inserted"`
	Facts    int         `json:"facts"`
	Rules    []RuleStats `json:"rules"`
}

// PassObserver is called after every pass.
type PassObserver func(PassStats)

// Result is the outcome of Engine.Run.
type Result struct {
	State    State
	Passes   int       // passes executed, the final empty pass included
	Inserted int       // facts inserted by rules (seeds excluded)
	Facts    []ir.Fact // final store in insertion order
}

// derivation is the engine's internal provenance record. FactIDs are
// computed on demand by Derivations.
type derivation struct {
	seq     int64
	pass    int
	rule    string
	fact    ir.Fact
	parents []ir.Fact
}

// Engine drives fixed-point evaluation of a rule set over a fact store.
//
// Thread-safety model: an Engine and its store belong to one goroutine.
//
// INVARIANTS:
//   - rules order NEVER changes after construction
//   - every fact in the store has exactly one derivation, in store order
//   - the store only grows
type Engine struct {
	store     *facts.Store
	rules     []Rule
	clock     *Clock
	quota     *PassQuota
	metrics   *Metrics
	observers []PassObserver

	marks       []int // per-rule store length at previous evaluation
	derivations []derivation
	pass        int
	inserted    int
	state       State
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxPasses bounds the number of passes Run may execute (0 = unlimited).
//
// Default: unlimited. Use WithMaxPasses(DefaultMaxPasses) at integration
// boundaries where the rule set is not trusted to converge.
func WithMaxPasses(maxPasses int) Option {
	return func(e *Engine) {
		e.quota = NewPassQuota(maxPasses)
	}
}

// WithMetrics records pass and run metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithPassObserver registers a callback invoked after every pass.
func WithPassObserver(obs PassObserver) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, obs)
	}
}

// WithClock uses a pre-configured logical clock for derivation seqs.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine over store with the given rules.
//
// Facts already present in store are recorded as seed derivations. The
// rules are copied, so later additions to rs do not affect this engine.
func New(store *facts.Store, rs *RuleSet, opts ...Option) *Engine {
	var rules []Rule
	if rs != nil {
		rules = rs.Rules()
	}

	e := &Engine{
		store: store,
		rules: rules,
		clock: NewClock(),
		quota: NewPassQuota(0),
		marks: make([]int, len(rules)),
		state: StateRunning,
	}

	for _, opt := range opts {
		opt(e)
	}

	for _, f := range store.Facts() {
		e.record(f, ir.RuleSeed, nil)
	}

	return e
}

// Seed adds facts before (or between) runs and returns how many were new.
// New facts put a converged engine back into the running state.
func (e *Engine) Seed(fs ...ir.Fact) int {
	added := 0
	for _, f := range fs {
		if e.store.Add(f) {
			e.record(f, ir.RuleSeed, nil)
			added++
		}
	}
	if added > 0 {
		e.state = StateRunning
	}
	return added
}

// Run executes passes until the fixed point.
//
// The context and the pass quota are checked before every pass. When either
// stops the run, the returned Result still describes the store as it was
// and the error is a *RuntimeError.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	slog.Info("engine starting",
		"rules", len(e.rules),
		"facts", e.store.Len(),
		"max_passes", e.quota.MaxPasses(),
	)
	start := time.Now()

	for e.state == StateRunning {
		if err := ctx.Err(); err != nil {
			slog.Warn("engine stopping: context done",
				"pass", e.pass,
				"facts", e.store.Len(),
				"error", err,
			)
			e.metrics.observeRun(time.Since(start), false)
			return e.result(), newCancelledError(e.pass+1, err)
		}

		if err := e.quota.Check(); err != nil {
			slog.Error("max passes quota exceeded",
				"pass", e.pass+1,
				"limit", e.quota.MaxPasses(),
				"facts", e.store.Len(),
				"event", "quota_exceeded",
			)
			e.metrics.observeRun(time.Since(start), false)
			return e.result(), newPassLimitError(e.pass+1, err)
		}

		e.Step()
	}

	e.metrics.observeRun(time.Since(start), true)
	slog.Info("engine converged",
		"passes", e.pass,
		"facts", e.store.Len(),
		"inserted", e.inserted,
	)

	return e.result(), nil
}

// Step runs a single pass and returns its statistics. Calling Step on a
// converged engine is a no-op.
//
// Each rule's condition is evaluated against the store as it stands when
// the rule's turn comes, so facts inserted by earlier rules in the same pass
// are visible to later ones.
func (e *Engine) Step() PassStats {
	if e.state == StateConverged {
		return PassStats{Pass: e.pass, Facts: e.store.Len()}
	}

	e.pass++
	stats := PassStats{Pass: e.pass, Rules: make([]RuleStats, 0, len(e.rules))}

	for i, r := range e.rules {
		view := View{store: e.store, mark: e.marks[i]}
		e.marks[i] = e.store.Len()

		rs := RuleStats{Rule: r.Name}
		if r.Condition(view) {
			rs.Fired = true
			candidates := r.Action(view)
			rs.Candidates = len(candidates)

			for _, c := range candidates {
				if e.store.Add(c.Fact) {
					e.record(c.Fact, r.Name, c.Parents)
					rs.Inserted++
				}
			}

			slog.Debug("rule fired",
				"rule", r.Name,
				"pass", e.pass,
				"candidates", rs.Candidates,
				"inserted", rs.Inserted,
			)
		}

		stats.Inserted += rs.Inserted
		stats.Rules = append(stats.Rules, rs)
	}

	stats.Facts = e.store.Len()
	e.inserted += stats.Inserted
	if stats.Inserted == 0 {
		e.state = StateConverged
	}

	slog.Debug("pass complete",
		"pass", stats.Pass,
		"inserted", stats.Inserted,
		"facts", stats.Facts,
	)

	e.metrics.observePass(stats)
	for _, obs := range e.observers {
		obs(stats)
	}

	return stats
}

// record appends a derivation for a freshly inserted fact.
func (e *Engine) record(f ir.Fact, rule string, parents []ir.Fact) {
	pass := e.pass
	if rule == ir.RuleSeed {
		pass = 0
	}
	e.derivations = append(e.derivations, derivation{
		seq:     e.clock.Next(),
		pass:    pass,
		rule:    rule,
		fact:    f,
		parents: parents,
	})
}

func (e *Engine) result() *Result {
	return &Result{
		State:    e.state,
		Passes:   e.pass,
		Inserted: e.inserted,
		Facts:    e.store.Facts(),
	}
}

// Derivations returns the provenance of every fact in store order.
func (e *Engine) Derivations() ([]ir.Derivation, error) {
	out := make([]ir.Derivation, len(e.derivations))
	for i, d := range e.derivations {
		id, err := ir.FactID(d.fact)
		if err != nil {
			return nil, fmt.Errorf("derivation %d: %w", d.seq, err)
		}

		var parents []string
		for _, p := range d.parents {
			pid, err := ir.FactID(p)
			if err != nil {
				return nil, fmt.Errorf("derivation %d parent: %w", d.seq, err)
			}
			parents = append(parents, pid)
		}

		out[i] = ir.Derivation{
			Seq:     d.seq,
			Pass:    d.pass,
			Rule:    d.rule,
			FactID:  id,
			Fact:    d.fact,
			Parents: parents,
		}
	}
	return out, nil
}

// Store returns the engine's fact store.
func (e *Engine) Store() *facts.Store {
	return e.store
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Passes returns the number of passes executed so far.
func (e *Engine) Passes() int {
	return e.pass
}

// Rules returns the rule names in evaluation order.
func (e *Engine) Rules() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name
	}
	return names
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}
