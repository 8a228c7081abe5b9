package engine

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reach/internal/facts"
	"github.com/roach88/reach/internal/ir"
)

// counterFact is the n-th fact of the counting rule used throughout.
func counterFact(n int64) ir.Fact {
	return ir.Fact{Origin: "n", Destination: "n", Label: strconv.FormatInt(n, 10), Cost: n}
}

// countTo returns a rule that extends 0,1,2,... up to limit (limit < 0 = forever).
func countTo(name string, limit int64) Rule {
	next := func(v View) (ir.Fact, bool) {
		var top int64 = -1
		for _, f := range v.Facts() {
			if f.Origin == "n" && f.Cost > top {
				top = f.Cost
			}
		}
		if limit >= 0 && top >= limit {
			return ir.Fact{}, false
		}
		return counterFact(top + 1), true
	}
	return Rule{
		Name: name,
		Condition: func(v View) bool {
			_, ok := next(v)
			return ok
		},
		Action: func(v View) []Candidate {
			f, _ := next(v)
			return Candidates(f)
		},
	}
}

func TestEngine_NewRecordsExistingFactsAsSeeds(t *testing.T) {
	s := facts.New()
	s.Add(counterFact(0))

	e := New(s, NewRuleSet())

	ds, err := e.Derivations()
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, ir.RuleSeed, ds[0].Rule)
	assert.Equal(t, 0, ds[0].Pass)
	assert.Equal(t, int64(1), ds[0].Seq)
	assert.Equal(t, ir.MustFactID(counterFact(0)), ds[0].FactID)
}

func TestEngine_RunConverges(t *testing.T) {
	rs := NewRuleSet().MustAdd(countTo("count", 3))
	e := New(facts.New(), rs)

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateConverged, res.State)
	assert.Equal(t, StateConverged, e.State())
	// 0..3 inserted one per pass, plus the final empty pass.
	assert.Equal(t, 5, res.Passes)
	assert.Equal(t, 4, res.Inserted)
	assert.Equal(t, []ir.Fact{counterFact(0), counterFact(1), counterFact(2), counterFact(3)}, res.Facts)
}

func TestEngine_EmptyRuleSetConvergesImmediately(t *testing.T) {
	s := facts.New()
	s.Add(counterFact(7))

	res, err := New(s, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Passes)
	assert.Equal(t, 0, res.Inserted)
	assert.Len(t, res.Facts, 1)
}

func TestEngine_RunAfterConvergenceIsNoop(t *testing.T) {
	e := New(facts.New(), NewRuleSet().MustAdd(countTo("count", 1)))

	first, err := e.Run(context.Background())
	require.NoError(t, err)

	second, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Passes, second.Passes)
	assert.Equal(t, first.Facts, second.Facts)
}

func TestEngine_ActionDuplicatesAreDropped(t *testing.T) {
	dup := ir.Fact{Origin: "A", Destination: "B", Label: "L", Cost: 1}
	rs := NewRuleSet().MustAdd(Rule{
		Name:      "dup",
		Condition: func(View) bool { return true },
		Action: func(View) []Candidate {
			return Candidates(dup, dup, dup)
		},
	})

	res, err := New(facts.New(), rs).Run(context.Background())
	require.NoError(t, err)

	// Pass 1 inserts one fact, pass 2 inserts none despite the true condition.
	assert.Equal(t, 2, res.Passes)
	assert.Equal(t, []ir.Fact{dup}, res.Facts)
}

func TestEngine_RulesSeeEarlierInsertsInSamePass(t *testing.T) {
	a := ir.Fact{Origin: "A", Destination: "B", Label: "first", Cost: 1}
	b := ir.Fact{Origin: "B", Destination: "C", Label: "second", Cost: 1}

	rs := NewRuleSet().
		MustAdd(Rule{
			Name:      "first",
			Condition: func(v View) bool { return !v.Has(a) },
			Action:    func(View) []Candidate { return Candidates(a) },
		}).
		MustAdd(Rule{
			Name:      "second",
			Condition: func(v View) bool { return v.Has(a) && !v.Has(b) },
			Action:    func(View) []Candidate { return Candidates(b) },
		})

	e := New(facts.New(), rs)
	stats := e.Step()

	assert.Equal(t, 2, stats.Inserted, "second rule must observe first rule's fact within the pass")
	assert.Equal(t, []ir.Fact{a, b}, e.Store().Facts())
}

func TestEngine_DeltaTracksPerRule(t *testing.T) {
	var seen [][]ir.Fact
	s := facts.New()
	s.Add(counterFact(0))

	rs := NewRuleSet().
		MustAdd(countTo("count", 2)).
		MustAdd(Rule{
			Name: "watch",
			Condition: func(v View) bool {
				seen = append(seen, v.Delta())
				return false
			},
			Action: func(View) []Candidate { return nil },
		})

	_, err := New(s, rs).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Equal(t, []ir.Fact{counterFact(0), counterFact(1)}, seen[0], "first evaluation sees everything")
	assert.Equal(t, []ir.Fact{counterFact(2)}, seen[1])
	assert.Empty(t, seen[2])
}

func TestEngine_MonotonicAcrossPasses(t *testing.T) {
	var sizes []int
	e := New(facts.New(), NewRuleSet().MustAdd(countTo("count", 5)),
		WithPassObserver(func(ps PassStats) { sizes = append(sizes, ps.Facts) }))

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	for i := 1; i < len(sizes); i++ {
		assert.GreaterOrEqual(t, sizes[i], sizes[i-1])
	}
}

func TestEngine_DerivationsFollowStoreOrder(t *testing.T) {
	e := New(facts.New(), NewRuleSet().MustAdd(countTo("count", 2)))
	_, err := e.Run(context.Background())
	require.NoError(t, err)

	ds, err := e.Derivations()
	require.NoError(t, err)
	require.Len(t, ds, 3)
	for i, d := range ds {
		assert.Equal(t, int64(i+1), d.Seq)
		assert.Equal(t, i+1, d.Pass)
		assert.Equal(t, "count", d.Rule)
		assert.Equal(t, e.Store().At(i), d.Fact)
	}
}

func TestEngine_WithClockContinuesSeqs(t *testing.T) {
	s := facts.New()
	s.Add(counterFact(0))

	clock := NewClockAt(100)
	e := New(s, NewRuleSet().MustAdd(countTo("count", 1)), WithClock(clock))
	_, err := e.Run(context.Background())
	require.NoError(t, err)

	ds, err := e.Derivations()
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, int64(101), ds[0].Seq)
	assert.Equal(t, int64(102), ds[1].Seq)
	assert.Same(t, clock, e.Clock())
	assert.Equal(t, int64(102), clock.Current())
}

func TestEngine_ParentsAreRecorded(t *testing.T) {
	p1 := ir.Fact{Origin: "A", Destination: "B", Label: "L1", Cost: 1}
	p2 := ir.Fact{Origin: "B", Destination: "C", Label: "L2", Cost: 1}
	child := ir.Fact{Origin: "A", Destination: "C", Label: "L1 + L2", Cost: 2}

	s := facts.New()
	s.Add(p1)
	s.Add(p2)

	rs := NewRuleSet().MustAdd(Rule{
		Name:      "join",
		Condition: func(v View) bool { return !v.Has(child) },
		Action: func(View) []Candidate {
			return []Candidate{{Fact: child, Parents: []ir.Fact{p1, p2}}}
		},
	})

	e := New(s, rs)
	_, err := e.Run(context.Background())
	require.NoError(t, err)

	ds, err := e.Derivations()
	require.NoError(t, err)
	require.Len(t, ds, 3)
	assert.Equal(t, []string{ir.MustFactID(p1), ir.MustFactID(p2)}, ds[2].Parents)
	assert.Equal(t, 1, ds[2].Pass)
}

func TestEngine_SeedReopensConvergedEngine(t *testing.T) {
	e := New(facts.New(), NewRuleSet().MustAdd(countTo("count", 1)))
	_, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateConverged, e.State())

	assert.Equal(t, 0, e.Seed(counterFact(0)), "already present")
	assert.Equal(t, StateConverged, e.State())

	assert.Equal(t, 1, e.Seed(ir.Fact{Origin: "x", Destination: "y", Label: "z", Cost: 1}))
	assert.Equal(t, StateRunning, e.State())
}

func TestEngine_PassLimit(t *testing.T) {
	e := New(facts.New(), NewRuleSet().MustAdd(countTo("forever", -1)), WithMaxPasses(10))

	res, err := e.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsPassLimitError(err))
	assert.False(t, IsCancelled(err))

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodePassLimit, re.Code)
	assert.Equal(t, 11, re.Pass)

	assert.Equal(t, StateRunning, res.State)
	assert.Equal(t, 10, res.Passes)
	assert.Len(t, res.Facts, 10, "facts inserted before the limit are kept")
}

func TestEngine_PassLimitAllowsExactConvergence(t *testing.T) {
	// count to 3 needs 5 passes including the empty one.
	e := New(facts.New(), NewRuleSet().MustAdd(countTo("count", 3)), WithMaxPasses(5))
	_, err := e.Run(context.Background())
	require.NoError(t, err)
}

func TestEngine_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	passes := 0
	e := New(facts.New(), NewRuleSet().MustAdd(countTo("forever", -1)),
		WithPassObserver(func(PassStats) {
			passes++
			if passes == 3 {
				cancel()
			}
		}))

	res, err := e.Run(ctx)
	require.Error(t, err)
	assert.True(t, IsCancelled(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, res.Passes)
}

func TestEngine_ContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(facts.New(), NewRuleSet().MustAdd(countTo("forever", -1))).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngine_StepOnConvergedEngine(t *testing.T) {
	e := New(facts.New(), nil)
	first := e.Step()
	assert.Equal(t, StateConverged, e.State())

	again := e.Step()
	assert.Equal(t, first.Pass, again.Pass)
	assert.Equal(t, 0, again.Inserted)
}

func TestEngine_RulesAreCopied(t *testing.T) {
	rs := NewRuleSet().MustAdd(countTo("a", 1))
	e := New(facts.New(), rs)
	rs.MustAdd(countTo("b", 1))

	assert.Equal(t, []string{"a"}, e.Rules())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "converged", StateConverged.String())
	assert.Equal(t, "state(9)", State(9).String())
}
