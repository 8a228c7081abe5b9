package engine

import (
	"fmt"

	"github.com/roach88/reach/internal/facts"
	"github.com/roach88/reach/internal/ir"
)

// Rule is a production rule: when Condition holds for the current facts,
// Action proposes candidate facts.
//
// Rules hold no mutable state of their own. Both functions must be pure
// with respect to the View they are given; candidates may include facts
// already in the store, the engine drops those.
type Rule struct {
	// Name identifies the rule in logs, metrics and derivations.
	Name string

	// Condition answers "can this rule still produce something new?".
	Condition func(View) bool

	// Action returns the rule's candidate facts, in the order they should be
	// inserted.
	Action func(View) []Candidate
}

// Candidate is a fact proposed by a rule action, together with the facts it
// was derived from (empty for facts taken from outside the store).
type Candidate struct {
	Fact    ir.Fact
	Parents []ir.Fact
}

// Candidates wraps plain facts as parentless candidates.
func Candidates(fs ...ir.Fact) []Candidate {
	out := make([]Candidate, len(fs))
	for i, f := range fs {
		out[i] = Candidate{Fact: f}
	}
	return out
}

// RuleSet is an append-only, ordered collection of rules.
//
// INVARIANTS:
//   - Rules are evaluated in the order they were added
//   - Rule names are unique
//   - Rules are never removed
type RuleSet struct {
	rules []Rule
	names map[string]bool
}

// NewRuleSet creates an empty rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{names: make(map[string]bool)}
}

// Add appends a rule. It fails on a missing name, a missing condition or
// action, or a name that is already registered.
func (rs *RuleSet) Add(r Rule) error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if r.Condition == nil || r.Action == nil {
		return fmt.Errorf("rule %s: condition and action are required", r.Name)
	}
	if r.Name == ir.RuleSeed {
		return fmt.Errorf("rule name %q is reserved", r.Name)
	}
	if rs.names[r.Name] {
		return fmt.Errorf("duplicate rule name: %s", r.Name)
	}
	rs.names[r.Name] = true
	rs.rules = append(rs.rules, r)
	return nil
}

// MustAdd is like Add but panics on error.
// Use only for rule sets assembled from code, never from user input.
func (rs *RuleSet) MustAdd(r Rule) *RuleSet {
	if err := rs.Add(r); err != nil {
		panic(err)
	}
	return rs
}

// Rules returns a copy of the rules in registration order.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// View is the read-only window a rule gets onto the fact store.
//
// Delta holds the facts added since this rule was last evaluated. On a
// rule's first evaluation every fact is delta.
type View struct {
	store *facts.Store
	mark  int
}

// NewView returns a view over s in which every fact counts as delta.
func NewView(s *facts.Store) View {
	return View{store: s}
}

// NewViewAt returns a view over s whose delta starts at position mark.
func NewViewAt(s *facts.Store, mark int) View {
	return View{store: s, mark: mark}
}

// Facts returns all facts in insertion order.
func (v View) Facts() []ir.Fact {
	return v.store.Facts()
}

// Len returns the number of facts.
func (v View) Len() int {
	return v.store.Len()
}

// At returns the i-th fact in insertion order.
func (v View) At(i int) ir.Fact {
	return v.store.At(i)
}

// Contains reports weak presence of the origin/destination pair.
func (v View) Contains(origin, destination string) bool {
	return v.store.Contains(origin, destination)
}

// Has reports whether a structurally equal fact is present.
func (v View) Has(f ir.Fact) bool {
	return v.store.Has(f)
}

// From returns the facts leaving origin, in insertion order.
func (v View) From(origin string) []ir.Fact {
	return v.store.From(origin)
}

// Positions returns the insertion positions of the facts leaving origin.
func (v View) Positions(origin string) []int {
	return v.store.Positions(origin)
}

// Delta returns the facts added since the rule's previous evaluation.
func (v View) Delta() []ir.Fact {
	return v.store.Since(v.mark)
}

// DeltaStart returns the position of the first delta fact.
func (v View) DeltaStart() int {
	return v.mark
}
