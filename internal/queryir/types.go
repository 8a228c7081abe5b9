package queryir

// Query represents an abstract query in the QueryIR.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition in the QueryIR.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = literal_value
//   - AtMost: field <= literal_int
//   - And: all predicates must be true
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Fact fields addressable by queries.
const (
	FieldSeq         = "seq"
	FieldID          = "id"
	FieldOrigin      = "origin"
	FieldDestination = "destination"
	FieldLabel       = "label"
	FieldCost        = "cost"
	FieldRule        = "rule"
	FieldPass        = "pass"
	FieldComposed    = "composed"
)

// FactColumns are the columns a Select returns when none are given, in
// scan order.
var FactColumns = []string{
	FieldSeq, FieldID, FieldOrigin, FieldDestination,
	FieldLabel, FieldCost, FieldRule, FieldPass,
}

// fieldKinds maps every known field to whether it holds an integer.
var fieldKinds = map[string]bool{
	FieldSeq:         true,
	FieldID:          false,
	FieldOrigin:      false,
	FieldDestination: false,
	FieldLabel:       false,
	FieldCost:        true,
	FieldRule:        false,
	FieldPass:        true,
	FieldComposed:    true,
}

// IsField reports whether name is a known fact field.
func IsField(name string) bool {
	_, ok := fieldKinds[name]
	return ok
}

// IsIntField reports whether name is a known integer field.
func IsIntField(name string) bool {
	return fieldKinds[name]
}

// Select reads the facts of one run.
//
// Semantics:
//
//	SELECT <columns> FROM facts WHERE run_id = <run> AND <filter>
//	ORDER BY seq
//
// Example:
//
//	Select{
//	  RunID: "0190...",
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: "origin", Value: "Tatooine"},
//	    AtMost{Field: "cost", Value: 60},
//	  }},
//	}
type Select struct {
	RunID   string    // Run whose facts are read (required)
	Columns []string  // Returned columns; empty means FactColumns
	Filter  Predicate // Optional filter (nil = all facts)
	Limit   int       // Maximum rows (0 = unlimited)
}

func (Select) queryNode() {}

// Equals represents a field-equals-literal predicate.
//
// Value must be a string or an int64; integer fields take int64, text
// fields take string.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// AtMost represents an upper bound on an integer field.
//
//	<field> <= <value>
type AtMost struct {
	Field string
	Value int64
}

func (AtMost) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
