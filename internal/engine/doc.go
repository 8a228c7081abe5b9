// Package engine implements the reach forward-chaining inference engine.
//
// The engine owns a fact store and an ordered rule set. It repeatedly runs
// passes over the rules until a full pass inserts no new fact (the fixed
// point), then hands the store back as its only output.
//
// ARCHITECTURE:
//
// Pass Loop:
//  1. The caller seeds the fact store (directly or via Engine.Seed)
//  2. Each pass evaluates every rule in registration order
//  3. A rule's condition sees the current store; if it holds, the rule's
//     action returns candidate facts
//  4. The engine inserts candidates through facts.Store.Add, which drops
//     structural duplicates
//  5. The loop stops after the first pass that inserts nothing
//
// Rules never mutate the store. Insertion and deduplication belong to the
// engine alone, so no rule can bypass the structural-equality invariant.
//
// Semi-Naive Evaluation:
// For every rule the engine remembers the store length at the rule's
// previous evaluation. Facts added since then are exposed as View.Delta, so
// a rule can skip combinations it has already examined. The converged fact
// set and its insertion order are the same as with a full rescan.
//
// Termination:
// The core loop has no iteration cap; a rule set that keeps producing
// distinct facts never converges. Callers that cannot trust their rule set
// bound the run with WithMaxPasses or a context deadline, both checked
// between passes.
//
// Determinism:
// Rules are evaluated in registration order, candidates are inserted in the
// order rules return them, and derivations are stamped from a logical
// clock. The same rules and seed facts always produce the same store.
package engine
