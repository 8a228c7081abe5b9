package rules

import (
	"context"
	"fmt"

	"github.com/roach88/reach/internal/engine"
	"github.com/roach88/reach/internal/ir"
	"github.com/roach88/reach/internal/network"
)

// RunConfig parameterizes Execute.
type RunConfig struct {
	RunID     string
	Ceiling   int64
	MaxPasses int // 0 = unlimited
	Metrics   *engine.Metrics
}

// Outcome is a finished (or stopped) closure computation, ready to be
// stored or compared.
type Outcome struct {
	Run         ir.Run
	Facts       []ir.Fact
	Derivations []ir.Derivation
}

// Execute computes the closure of net and describes it as a Run.
//
// When the engine stops early (pass quota, cancellation) the Outcome still
// describes the facts derived so far, with state "stopped", and the engine
// error is returned alongside it.
func Execute(ctx context.Context, net *network.Network, cfg RunConfig) (*Outcome, error) {
	edges := net.Edges()
	networkHash, err := ir.NetworkHash(edges, cfg.Ceiling)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", net.Name, err)
	}

	opts := []engine.Option{engine.WithMaxPasses(cfg.MaxPasses)}
	if cfg.Metrics != nil {
		opts = append(opts, engine.WithMetrics(cfg.Metrics))
	}
	e := NewEngine(net, cfg.Ceiling, opts...)
	res, runErr := e.Run(ctx)

	closureHash, err := ir.ClosureHash(res.Facts)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", net.Name, err)
	}
	derivations, err := e.Derivations()
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", net.Name, err)
	}

	state := ir.RunConverged
	if res.State != engine.StateConverged {
		state = ir.RunStopped
	}

	out := &Outcome{
		Run: ir.Run{
			ID:            cfg.RunID,
			Network:       net.Name,
			NetworkHash:   networkHash,
			ClosureHash:   closureHash,
			Ceiling:       cfg.Ceiling,
			MaxPasses:     cfg.MaxPasses,
			State:         state,
			Passes:        res.Passes,
			FactCount:     len(res.Facts),
			EngineVersion: ir.EngineVersion,
			IRVersion:     ir.IRVersion,
			Edges:         edges,
		},
		Facts:       res.Facts,
		Derivations: derivations,
	}

	if runErr != nil {
		return out, fmt.Errorf("execute %s: %w", net.Name, runErr)
	}
	return out, nil
}

// Rebuild reconstructs a network from a stored run's edges such that
// Rebuild(run).Edges() equals run.Edges. Origins are registered before any
// route so a station first seen as a destination cannot jump ahead.
func Rebuild(run ir.Run) *network.Network {
	net := network.New(run.Network)
	for _, e := range run.Edges {
		net.AddStation(e.Origin)
	}
	for _, e := range run.Edges {
		net.AddRoute(e.Origin, e.Label, e.Destination, e.Cost)
	}
	return net
}
