// Package rules holds the transit rules that turn a network into the set of
// reachable-route facts, and the wiring that runs them on an engine.
//
// Two rules are registered, in this order:
//
//   - direct-connection materializes every network edge whose station pair
//     is not yet known.
//   - bounded-composition joins two known routes end to start when the
//     joined pair is not yet known and the summed cost stays within the
//     ceiling. Repeated over passes this yields the transitive closure
//     restricted to paths no more expensive than the ceiling.
//
// Both rules read the store through its public view only. Weak presence
// (any route between two stations) decides whether a rule has work left;
// the engine's structural deduplication decides what is stored. A pair can
// therefore hold several facts when more than one route reached it in the
// same action.
package rules
