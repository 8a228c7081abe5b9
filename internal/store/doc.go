// Package store provides SQLite-backed durable storage for closure runs.
//
// A run is written once, atomically, together with:
//   - Facts: every fact of the run with its derivation (seq, pass, rule)
//   - Provenance Edges: fact → parent fact links for composed facts
//
// # Critical Patterns
//
// Run-Level Idempotency
//   - runs.id is the primary key; writing the same run twice is a no-op
//   - writing a different closure under an existing run ID is an error
//
// Logical Ordering
//   - All ordering uses seq INTEGER (derivation order), NEVER timestamps
//   - All fact queries include: ORDER BY seq ASC, id ASC COLLATE BINARY
//
// Replayable Input
//   - runs.edges holds the canonical JSON the NetworkHash was computed
//     from, so a run can be recomputed and its ClosureHash compared
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All content-addressed IDs are computed via functions in internal/ir/hash.go
// using RFC 8785 canonical JSON and SHA-256 with domain separation.
package store
