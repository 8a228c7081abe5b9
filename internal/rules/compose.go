package rules

import (
	"math"
	"sort"

	"github.com/roach88/reach/internal/engine"
	"github.com/roach88/reach/internal/ir"
)

// RuleBoundedComposition is the name of the bounded-composition rule.
const RuleBoundedComposition = "bounded-composition"

// DefaultCeiling is the maximum cost of a composed route, in minutes.
const DefaultCeiling int64 = 120

// BoundedComposition returns the rule joining h1 and h2 into
// (h1.Origin, h2.Destination, h1.Label + " + " + h2.Label, h1.Cost + h2.Cost)
// whenever h1 ends where h2 starts, the joined pair is not yet known, and
// the summed cost is at most ceiling.
//
// Candidates come out in nested order over the store: every h2 for the
// first h1, then every h2 for the second, and so on. Weak presence is
// judged against the store as it was when the action started, so two
// routes reaching the same new pair in one action are both emitted.
func BoundedComposition(ceiling int64) engine.Rule {
	return engine.Rule{
		Name: RuleBoundedComposition,
		Condition: func(v engine.View) bool {
			return len(compositions(v, ceiling, true)) > 0
		},
		Action: func(v engine.View) []engine.Candidate {
			return compositions(v, ceiling, false)
		},
	}
}

// compositions enumerates qualifying (h1, h2) joins.
//
// A pair of facts that were both present at the rule's previous evaluation
// was already considered then: it either produced its joined pair or can
// never qualify. Only pairs with at least one delta fact are examined.
func compositions(v engine.View, ceiling int64, stopAtFirst bool) []engine.Candidate {
	var out []engine.Candidate
	n := v.Len()
	mark := v.DeltaStart()

	for i := 0; i < n; i++ {
		h1 := v.At(i)
		next := v.Positions(h1.Destination)
		if i < mark {
			next = next[sort.SearchInts(next, mark):]
		}

		for _, j := range next {
			h2 := v.At(j)
			if v.Contains(h1.Origin, h2.Destination) {
				continue
			}
			cost, ok := addCost(h1.Cost, h2.Cost)
			if !ok || cost > ceiling {
				continue
			}

			out = append(out, engine.Candidate{
				Fact: ir.Fact{
					Origin:      h1.Origin,
					Destination: h2.Destination,
					Label:       h1.Label + ir.LabelSeparator + h2.Label,
					Cost:        cost,
				},
				Parents: []ir.Fact{h1, h2},
			})
			if stopAtFirst {
				return out
			}
		}
	}
	return out
}

// addCost sums two costs, reporting false when the sum does not fit in an
// int64. Such a route has no representable cost and is never composed.
func addCost(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, false
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, false
	}
	return a + b, true
}
