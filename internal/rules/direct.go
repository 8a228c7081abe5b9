package rules

import (
	"github.com/roach88/reach/internal/engine"
	"github.com/roach88/reach/internal/ir"
	"github.com/roach88/reach/internal/network"
)

// RuleDirectConnection is the name of the direct-connection rule.
const RuleDirectConnection = "direct-connection"

// DirectConnection returns the rule materializing network edges.
//
// The edge list is taken from net when the rule is built; later changes to
// net are not seen.
func DirectConnection(net *network.Network) engine.Rule {
	edges := net.Edges()

	missing := func(v engine.View, stopAtFirst bool) []ir.Fact {
		var out []ir.Fact
		for _, e := range edges {
			if v.Contains(e.Origin, e.Destination) {
				continue
			}
			out = append(out, e)
			if stopAtFirst {
				break
			}
		}
		return out
	}

	return engine.Rule{
		Name: RuleDirectConnection,
		Condition: func(v engine.View) bool {
			return len(missing(v, true)) > 0
		},
		Action: func(v engine.View) []engine.Candidate {
			return engine.Candidates(missing(v, false)...)
		},
	}
}

// Seed adds every network edge to the engine as a direct fact and returns
// how many were new.
func Seed(e *engine.Engine, net *network.Network) int {
	return e.Seed(net.Edges()...)
}
