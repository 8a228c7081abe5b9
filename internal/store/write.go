package store

import (
	"context"
	"fmt"

	"github.com/roach88/reach/internal/ir"
)

// WriteRun stores a run together with its derivations in one transaction.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing a run whose ID is
// already stored with the same ClosureHash is a no-op and reports
// inserted=false. A different ClosureHash under an existing ID is an error,
// since it means two different closures claim the same identity.
//
// Derivations must be in seq order; parents must precede the facts built
// from them (foreign key constraint).
func (s *Store) WriteRun(ctx context.Context, run ir.Run, derivations []ir.Derivation) (inserted bool, err error) {
	if run.ID == "" {
		return false, fmt.Errorf("write run: run ID is required")
	}
	if run.FactCount != len(derivations) {
		return false, fmt.Errorf("write run %s: fact count %d does not match %d derivations",
			run.ID, run.FactCount, len(derivations))
	}

	edgesJSON, err := marshalEdges(run.Edges)
	if err != nil {
		return false, fmt.Errorf("write run %s: %w", run.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write run %s: begin tx: %w", run.ID, err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, network, network_hash, closure_hash, edges, ceiling, max_passes,
		 state, passes, fact_count, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Network,
		run.NetworkHash,
		run.ClosureHash,
		edgesJSON,
		run.Ceiling,
		run.MaxPasses,
		run.State,
		run.Passes,
		run.FactCount,
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return false, fmt.Errorf("write run %s: insert: %w", run.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write run %s: rows affected: %w", run.ID, err)
	}
	if rowsAffected == 0 {
		var existing string
		err := tx.QueryRowContext(ctx, `SELECT closure_hash FROM runs WHERE id = ?`, run.ID).Scan(&existing)
		if err != nil {
			return false, fmt.Errorf("write run %s: select existing: %w", run.ID, err)
		}
		if existing != run.ClosureHash {
			return false, fmt.Errorf("write run %s: already stored with closure %s, got %s",
				run.ID, existing, run.ClosureHash)
		}
		return false, nil
	}

	factStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO facts
		(run_id, id, seq, origin, destination, label, cost, rule, pass, composed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return false, fmt.Errorf("write run %s: prepare facts: %w", run.ID, err)
	}
	defer factStmt.Close()

	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO provenance_edges (run_id, fact_id, position, parent_id)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return false, fmt.Errorf("write run %s: prepare provenance: %w", run.ID, err)
	}
	defer edgeStmt.Close()

	for _, d := range derivations {
		f := d.Fact
		if _, err := factStmt.ExecContext(ctx,
			run.ID, d.FactID, d.Seq,
			f.Origin, f.Destination, f.Label, f.Cost,
			d.Rule, d.Pass, boolToInt(f.Composed()),
		); err != nil {
			return false, fmt.Errorf("write run %s: fact seq %d: %w", run.ID, d.Seq, err)
		}

		for pos, parent := range d.Parents {
			if _, err := edgeStmt.ExecContext(ctx, run.ID, d.FactID, pos, parent); err != nil {
				return false, fmt.Errorf("write run %s: provenance seq %d: %w", run.ID, d.Seq, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write run %s: commit: %w", run.ID, err)
	}
	return true, nil
}
