package rules

import (
	"context"
	"fmt"

	"github.com/roach88/reach/internal/engine"
	"github.com/roach88/reach/internal/facts"
	"github.com/roach88/reach/internal/network"
)

// RuleSet returns the transit rules for net in evaluation order.
func RuleSet(net *network.Network, ceiling int64) *engine.RuleSet {
	return engine.NewRuleSet().
		MustAdd(DirectConnection(net)).
		MustAdd(BoundedComposition(ceiling))
}

// NewEngine builds an engine over a fresh store seeded with every edge of
// net and loaded with the transit rules.
func NewEngine(net *network.Network, ceiling int64, opts ...engine.Option) *engine.Engine {
	e := engine.New(facts.New(), RuleSet(net, ceiling), opts...)
	Seed(e, net)
	return e
}

// Closure computes the bounded-cost reachable routes of net.
func Closure(ctx context.Context, net *network.Network, ceiling int64, opts ...engine.Option) (*engine.Result, error) {
	res, err := NewEngine(net, ceiling, opts...).Run(ctx)
	if err != nil {
		return res, fmt.Errorf("closure of %s: %w", net.Name, err)
	}
	return res, nil
}
