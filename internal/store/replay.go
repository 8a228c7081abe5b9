package store

import (
	"context"
	"fmt"

	"github.com/roach88/reach/internal/ir"
)

// RunState is the stored state of a run, checked for replay.
type RunState struct {
	Run           ir.Run
	StoredFacts   int   // fact rows actually present
	DirectFacts   int   // stored facts with a single segment
	ComposedFacts int   // stored facts with two or more segments
	LastSeq       int64 // highest stored seq
	MaxPass       int   // highest pass that inserted a fact
	NetworkHashOK bool  // stored edges and ceiling rehash to Run.NetworkHash
	ClosureHashOK bool  // stored facts rehash to Run.ClosureHash
	IsComplete    bool  // converged, and every check above holds
}

// GetRunState loads a run and checks its stored facts against its recorded
// counts and hashes. A run that passes every check can be replayed: its
// edges and ceiling are exactly what produced its facts.
func (s *Store) GetRunState(ctx context.Context, runID string) (RunState, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return RunState{}, fmt.Errorf("get run state: %w", err)
	}
	state := RunState{Run: run}

	var composed int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(composed), 0), COALESCE(MAX(seq), 0), COALESCE(MAX(pass), 0)
		FROM facts
		WHERE run_id = ?
	`, runID).Scan(&state.StoredFacts, &composed, &state.LastSeq, &state.MaxPass)
	if err != nil {
		return state, fmt.Errorf("get run state %s: count facts: %w", runID, err)
	}
	state.ComposedFacts = composed
	state.DirectFacts = state.StoredFacts - composed

	networkHash, err := ir.NetworkHash(run.Edges, run.Ceiling)
	if err != nil {
		return state, fmt.Errorf("get run state %s: %w", runID, err)
	}
	state.NetworkHashOK = networkHash == run.NetworkHash

	facts, err := s.ReadFacts(ctx, runID)
	if err != nil {
		return state, fmt.Errorf("get run state %s: %w", runID, err)
	}
	closureHash, err := ir.ClosureHash(facts)
	if err != nil {
		return state, fmt.Errorf("get run state %s: %w", runID, err)
	}
	state.ClosureHashOK = closureHash == run.ClosureHash

	state.IsComplete = run.State == ir.RunConverged &&
		state.StoredFacts == run.FactCount &&
		state.NetworkHashOK &&
		state.ClosureHashOK

	return state, nil
}

// FindIncompleteRuns returns every run that stopped before its fixed point
// or whose stored data no longer matches its hashes, ordered by run ID.
func (s *Store) FindIncompleteRuns(ctx context.Context) ([]RunState, error) {
	runs, err := s.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("find incomplete runs: %w", err)
	}

	incomplete := []RunState{}
	for _, run := range runs {
		state, err := s.GetRunState(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("find incomplete runs: %w", err)
		}
		if !state.IsComplete {
			incomplete = append(incomplete, state)
		}
	}
	return incomplete, nil
}

// FindRunsByNetwork returns the runs computed from the same edges and
// ceiling, ordered by run ID. Replays of one input share a NetworkHash.
func (s *Store) FindRunsByNetwork(ctx context.Context, networkHash string) ([]ir.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE network_hash = ?
		ORDER BY id ASC COLLATE BINARY
	`, networkHash)
	if err != nil {
		return nil, fmt.Errorf("find runs by network: %w", err)
	}
	defer rows.Close()

	runs := []ir.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("find runs by network: %w", err)
		}
		run.Edges = nil
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
