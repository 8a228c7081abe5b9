package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainFact    = "reach/fact/v2"
	DomainNetwork = "reach/network/v2"
	DomainClosure = "reach/closure/v2"
)

// newDomainHash starts a SHA-256 over domain + 0x00. The null byte keeps
// the domain and data apart.
func newDomainHash(domain string) hash.Hash {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	return h
}

// writeFact feeds f to h field by field: each string as its byte length
// followed by its raw bytes, the cost as eight big-endian bytes. No field
// is normalized or re-encoded, so two facts write the same bytes exactly
// when they are structurally equal.
func writeFact(h hash.Hash, f Fact) {
	var n [8]byte
	for _, s := range [...]string{f.Origin, f.Destination, f.Label} {
		binary.BigEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	binary.BigEndian.PutUint64(n[:], uint64(f.Cost))
	h.Write(n[:])
}

// writeFacts feeds a count-prefixed fact sequence to h.
func writeFacts(h hash.Hash, facts []Fact) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(facts)))
	h.Write(n[:])
	for _, f := range facts {
		writeFact(h, f)
	}
}

// FactID computes the content-addressed ID of a fact. Facts share an ID
// if and only if they are structurally equal.
func FactID(f Fact) (string, error) {
	h := newDomainHash(DomainFact)
	writeFact(h, f)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// NetworkHash identifies a closure input: the ordered edge list plus the
// composition ceiling. Two runs with the same NetworkHash must converge to the
// same ClosureHash.
func NetworkHash(edges []Fact, ceiling int64) (string, error) {
	h := newDomainHash(DomainNetwork)
	var c [8]byte
	binary.BigEndian.PutUint64(c[:], uint64(ceiling))
	h.Write(c[:])
	writeFacts(h, edges)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ClosureHash identifies a converged fact sequence, insertion order included.
func ClosureHash(facts []Fact) (string, error) {
	h := newDomainHash(DomainClosure)
	writeFacts(h, facts)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MustFactID is like FactID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFactID(f Fact) string {
	id, err := FactID(f)
	if err != nil {
		panic(err)
	}
	return id
}
