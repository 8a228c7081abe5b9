// Package facts implements the append-only fact store the inference engine
// evaluates rules against.
//
// The store keeps facts in insertion order and never holds two structurally
// equal facts. It also answers the weaker question "is any route between
// these two stations known", which rules use to decide whether work remains.
//
// A Store is owned by a single inference run and is not safe for concurrent
// mutation.
package facts

import (
	"slices"

	"github.com/roach88/reach/internal/ir"
)

// Store is an ordered, deduplicated, append-only sequence of facts.
type Store struct {
	facts    []ir.Fact
	seen     map[ir.Fact]struct{}
	pairs    map[ir.Pair]int
	byOrigin map[string][]int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		seen:     make(map[ir.Fact]struct{}),
		pairs:    make(map[ir.Pair]int),
		byOrigin: make(map[string][]int),
	}
}

// Add appends f iff no structurally equal fact is already present.
// Returns whether an insertion happened.
func (s *Store) Add(f ir.Fact) bool {
	if _, ok := s.seen[f]; ok {
		return false
	}
	s.seen[f] = struct{}{}
	s.pairs[f.Pair()]++
	s.byOrigin[f.Origin] = append(s.byOrigin[f.Origin], len(s.facts))
	s.facts = append(s.facts, f)
	return true
}

// Has reports whether a structurally equal fact is present.
func (s *Store) Has(f ir.Fact) bool {
	_, ok := s.seen[f]
	return ok
}

// Contains reports weak presence: whether any fact links origin to
// destination, whatever its label or cost.
func (s *Store) Contains(origin, destination string) bool {
	return s.pairs[ir.Pair{Origin: origin, Destination: destination}] > 0
}

// PairCount returns how many distinct facts link origin to destination.
func (s *Store) PairCount(origin, destination string) int {
	return s.pairs[ir.Pair{Origin: origin, Destination: destination}]
}

// Len returns the number of facts.
func (s *Store) Len() int {
	return len(s.facts)
}

// At returns the i-th fact in insertion order.
func (s *Store) At(i int) ir.Fact {
	return s.facts[i]
}

// Facts returns the facts in insertion order. The returned slice must be
// treated as read-only; it is clipped so appends never reach the store.
func (s *Store) Facts() []ir.Fact {
	return slices.Clip(s.facts)
}

// Since returns the facts inserted at position i or later.
func (s *Store) Since(i int) []ir.Fact {
	if i >= len(s.facts) {
		return nil
	}
	if i < 0 {
		i = 0
	}
	return slices.Clip(s.facts[i:])
}

// From returns the facts whose origin is origin, in insertion order.
func (s *Store) From(origin string) []ir.Fact {
	idx := s.byOrigin[origin]
	out := make([]ir.Fact, len(idx))
	for i, j := range idx {
		out[i] = s.facts[j]
	}
	return out
}

// Positions returns the insertion positions of facts whose origin is origin,
// ascending. The returned slice must be treated as read-only.
func (s *Store) Positions(origin string) []int {
	return slices.Clip(s.byOrigin[origin])
}
