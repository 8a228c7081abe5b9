// Package harness runs closure scenarios and checks their results.
//
// A scenario names a network, optionally a ceiling and pass limit, and a
// list of assertions over the converged fact store. The harness computes
// the closure, stores it in a private in-memory database, reads the
// derivations back and evaluates the assertions against them.
//
// # Scenario Format
//
//	name: chain_abc
//	description: "A -> B -> C composes into A -> C"
//	ceiling: 120
//	stations: [A, B, C]
//	routes:
//	  - { from: A, line: L1, to: B, time: 10 }
//	  - { from: B, line: L2, to: C, time: 20 }
//	run_id: chain-abc
//	assertions:
//	  - type: fact_present
//	    from: A
//	    to: C
//	    label: "L1 + L2"
//	    cost: 30
//	  - type: fact_count
//	    count: 3
//
// # Assertion Types
//
//   - fact_present: some fact joins from and to (label and cost optional)
//   - fact_absent: no fact joins from and to with the given label/cost
//   - fact_count: exact number of stored facts, optionally of one kind
//   - pair_count: exact number of facts joining from and to
//   - max_cost: no fact exceeds the given cost
//
// # Deterministic Testing
//
// Every scenario runs under a fixed run ID (run_id, or "test-run-default")
// and the engine is deterministic, so traces compare byte for byte against
// golden snapshots in testdata/golden.
package harness
