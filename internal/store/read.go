package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/reach/internal/ir"
	"github.com/roach88/reach/internal/queryir"
	"github.com/roach88/reach/internal/querysql"
)

const runColumns = `id, network, network_hash, closure_hash, edges, ceiling, max_passes,
	state, passes, fact_count, engine_version, ir_version`

const factColumns = `seq, id, origin, destination, label, cost, rule, pass`

// ReadRun retrieves a run, edges included.
// Returns sql.ErrNoRows (wrapped) if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return ir.Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every stored run ordered by ID. UUIDv7 run IDs sort by
// creation time, so this is oldest first. Edges are not loaded.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context) ([]ir.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		run.Edges = nil
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ReadFacts returns a run's facts in derivation order.
func (s *Store) ReadFacts(ctx context.Context, runID string) ([]ir.Fact, error) {
	ds, err := s.readFactRows(ctx, `
		SELECT `+factColumns+` FROM facts
		WHERE run_id = ?
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read facts: %w", err)
	}
	facts := make([]ir.Fact, len(ds))
	for i, d := range ds {
		facts[i] = d.Fact
	}
	return facts, nil
}

// ReadDerivations returns every derivation of a run in seq order, parents
// included.
func (s *Store) ReadDerivations(ctx context.Context, runID string) ([]ir.Derivation, error) {
	ds, err := s.readFactRows(ctx, `
		SELECT `+factColumns+` FROM facts
		WHERE run_id = ?
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read derivations: %w", err)
	}

	parents, err := s.readParents(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("read derivations: %w", err)
	}
	for i := range ds {
		ds[i].Parents = parents[ds[i].FactID]
	}
	return ds, nil
}

// ReadDerivation retrieves one derivation by FactID or by a unique prefix
// of it. Returns sql.ErrNoRows (wrapped) if nothing matches.
func (s *Store) ReadDerivation(ctx context.Context, runID, factID string) (ir.Derivation, error) {
	if factID == "" {
		return ir.Derivation{}, fmt.Errorf("read derivation: fact ID is required")
	}

	ds, err := s.readFactRows(ctx, `
		SELECT `+factColumns+` FROM facts
		WHERE run_id = ? AND substr(id, 1, ?) = ?
		ORDER BY seq ASC, id ASC COLLATE BINARY
		LIMIT 2
	`, runID, len(factID), factID)
	if err != nil {
		return ir.Derivation{}, fmt.Errorf("read derivation %s: %w", factID, err)
	}
	switch len(ds) {
	case 0:
		return ir.Derivation{}, fmt.Errorf("read derivation %s: %w", factID, sql.ErrNoRows)
	case 1:
	default:
		return ir.Derivation{}, fmt.Errorf("read derivation %s: prefix is ambiguous", factID)
	}

	d := ds[0]
	rows, err := s.db.QueryContext(ctx, `
		SELECT parent_id FROM provenance_edges
		WHERE run_id = ? AND fact_id = ?
		ORDER BY position ASC
	`, runID, d.FactID)
	if err != nil {
		return ir.Derivation{}, fmt.Errorf("read derivation %s: %w", factID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return ir.Derivation{}, fmt.Errorf("read derivation %s: %w", factID, err)
		}
		d.Parents = append(d.Parents, p)
	}
	if err := rows.Err(); err != nil {
		return ir.Derivation{}, fmt.Errorf("read derivation %s: %w", factID, err)
	}
	return d, nil
}

// ReadChildren returns the derivations built directly from factID (forward
// trace), in seq order. Parents are not loaded.
func (s *Store) ReadChildren(ctx context.Context, runID, factID string) ([]ir.Derivation, error) {
	ds, err := s.readFactRows(ctx, `
		SELECT DISTINCT f.seq, f.id, f.origin, f.destination, f.label, f.cost, f.rule, f.pass
		FROM facts f
		JOIN provenance_edges pe ON pe.run_id = f.run_id AND pe.fact_id = f.id
		WHERE f.run_id = ? AND pe.parent_id = ?
		ORDER BY f.seq ASC, f.id ASC COLLATE BINARY
	`, runID, factID)
	if err != nil {
		return nil, fmt.Errorf("read children of %s: %w", factID, err)
	}
	return ds, nil
}

// QueryFacts runs a fact query against one run. Results are in derivation
// order; parents are not loaded.
func (s *Store) QueryFacts(ctx context.Context, runID string, q queryir.FactQuery) ([]ir.Derivation, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	sel := q.Select(runID)
	if err := queryir.Validate(sel).Err(); err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}

	query, params, err := querysql.NewSQLCompiler().Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}

	ds, err := s.readFactRows(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	return ds, nil
}

// readFactRows runs a query selecting factColumns and scans the rows.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) readFactRows(ctx context.Context, query string, args ...any) ([]ir.Derivation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ds := []ir.Derivation{}
	for rows.Next() {
		d, err := scanDerivation(rows)
		if err != nil {
			return nil, err
		}
		ds = append(ds, d)
	}
	return ds, rows.Err()
}

// readParents maps fact ID → parent IDs for a whole run.
func (s *Store) readParents(ctx context.Context, runID string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fact_id, parent_id FROM provenance_edges
		WHERE run_id = ?
		ORDER BY fact_id ASC COLLATE BINARY, position ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parents := make(map[string][]string)
	for rows.Next() {
		var factID, parentID string
		if err := rows.Scan(&factID, &parentID); err != nil {
			return nil, err
		}
		parents[factID] = append(parents[factID], parentID)
	}
	return parents, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (ir.Run, error) {
	var run ir.Run
	var edgesJSON string
	err := row.Scan(
		&run.ID,
		&run.Network,
		&run.NetworkHash,
		&run.ClosureHash,
		&edgesJSON,
		&run.Ceiling,
		&run.MaxPasses,
		&run.State,
		&run.Passes,
		&run.FactCount,
		&run.EngineVersion,
		&run.IRVersion,
	)
	if err != nil {
		return ir.Run{}, err
	}

	run.Edges, err = unmarshalEdges(edgesJSON)
	if err != nil {
		return ir.Run{}, err
	}
	return run, nil
}

func scanDerivation(row rowScanner) (ir.Derivation, error) {
	var d ir.Derivation
	err := row.Scan(
		&d.Seq,
		&d.FactID,
		&d.Fact.Origin,
		&d.Fact.Destination,
		&d.Fact.Label,
		&d.Fact.Cost,
		&d.Rule,
		&d.Pass,
	)
	return d, err
}
