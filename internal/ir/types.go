package ir

import "strings"

// LabelSeparator joins the line labels of a composed fact.
const LabelSeparator = " + "

// Fact is one known or derived route: origin reaches destination via the
// line(s) in Label for a total Cost.
//
// Fact is a comparable value type. Two facts are the same fact only when all
// four fields match.
type Fact struct {
	Origin      string `json:"origin" yaml:"origin"`
	Destination string `json:"destination" yaml:"destination"`
	Label       string `json:"label" yaml:"label"`
	Cost        int64  `json:"cost" yaml:"cost"`
}

// Pair returns the (origin, destination) key used for weak presence.
func (f Fact) Pair() Pair {
	return Pair{Origin: f.Origin, Destination: f.Destination}
}

// Composed reports whether the fact was built from more than one segment.
func (f Fact) Composed() bool {
	return strings.Contains(f.Label, LabelSeparator)
}

// Segments returns the line labels making up the fact, in travel order.
func (f Fact) Segments() []string {
	return strings.Split(f.Label, LabelSeparator)
}

// Pair identifies an origin/destination pair regardless of label and cost.
type Pair struct {
	Origin      string
	Destination string
}

// Derivation records how a fact entered a fact store.
//
// Seq is the logical insertion position (1-based, strictly increasing).
// Pass is the engine pass that inserted the fact; seeded facts use pass 0.
// Parents holds the FactIDs the fact was composed from, in order.
type Derivation struct {
	Seq     int64    `json:"seq"`
	Pass    int      `json:"pass"`
	Rule    string   `json:"rule"`
	FactID  string   `json:"fact_id"`
	Fact    Fact     `json:"fact"`
	Parents []string `json:"parents,omitempty"`
}

// RuleSeed names derivations that were added before the first pass.
const RuleSeed = "seed"

// Run states.
const (
	RunConverged = "converged"
	RunStopped   = "stopped"
)

// Run describes one closure computation: its input (edges and ceiling) and
// its outcome.
//
// NetworkHash covers Edges and Ceiling; ClosureHash covers the final facts in
// insertion order. Recomputing a run from its Edges and Ceiling must
// reproduce ClosureHash exactly.
type Run struct {
	ID            string `json:"id"`
	Network       string `json:"network"`
	NetworkHash   string `json:"network_hash"`
	ClosureHash   string `json:"closure_hash"`
	Ceiling       int64  `json:"ceiling"`
	MaxPasses     int    `json:"max_passes"`
	State         string `json:"state"`
	Passes        int    `json:"passes"`
	FactCount     int    `json:"fact_count"`
	EngineVersion string `json:"engine_version"`
	IRVersion     string `json:"ir_version"`
	Edges         []Fact `json:"edges,omitempty"`
}
