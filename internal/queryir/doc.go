// Package queryir is the query intermediate representation for stored
// closure facts.
//
// QueryIR sits between the user-facing filters (CLI flags, FactQuery) and
// the SQL backend:
//
//	[FactQuery] → [Query IR] → [SQL Backend]
//
// Query and Predicate are sealed interfaces using the marker method
// pattern. Only types in this package implement them, so backends can
// switch exhaustively:
//
//	switch q := query.(type) {
//	case Select:
//	    // Handle select
//	default:
//	    // Impossible - compiler knows all Query types
//	}
//
// Field names are a closed set (see Fields). Backends must reject anything
// else so that a field name can never carry SQL into a statement; values
// always travel as parameters.
//
// Every query is scoped to one run and yields facts in derivation order
// (seq), so results are identical across replays of the same run.
package queryir
