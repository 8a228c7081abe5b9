package queryir

import "fmt"

// Kind selects direct facts, composed facts, or both.
type Kind string

const (
	KindAny      Kind = "any"
	KindDirect   Kind = "direct"
	KindComposed Kind = "composed"
)

// ParseKind converts a flag value to a Kind. The empty string means any.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindAny:
		return KindAny, nil
	case KindDirect, KindComposed:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("invalid kind %q: must be one of any, direct, composed", s)
	}
}

// FactQuery is the user-facing filter over a run's facts. Zero values
// mean "no constraint".
type FactQuery struct {
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination,omitempty"`
	MaxCost     *int64 `json:"max_cost,omitempty"`
	Kind        Kind   `json:"kind,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// Validate checks the query's own fields.
func (q FactQuery) Validate() error {
	if _, err := ParseKind(string(q.Kind)); err != nil {
		return err
	}
	if q.MaxCost != nil && *q.MaxCost < 0 {
		return fmt.Errorf("max cost must be >= 0, got %d", *q.MaxCost)
	}
	if q.Limit < 0 {
		return fmt.Errorf("limit must be >= 0, got %d", q.Limit)
	}
	return nil
}

// Select lowers the query to the IR for runID. Predicates appear in a fixed
// order so the compiled SQL is stable.
func (q FactQuery) Select(runID string) Select {
	var preds []Predicate
	if q.Origin != "" {
		preds = append(preds, Equals{Field: FieldOrigin, Value: q.Origin})
	}
	if q.Destination != "" {
		preds = append(preds, Equals{Field: FieldDestination, Value: q.Destination})
	}
	if q.MaxCost != nil {
		preds = append(preds, AtMost{Field: FieldCost, Value: *q.MaxCost})
	}
	switch q.Kind {
	case KindDirect:
		preds = append(preds, Equals{Field: FieldComposed, Value: int64(0)})
	case KindComposed:
		preds = append(preds, Equals{Field: FieldComposed, Value: int64(1)})
	}

	sel := Select{RunID: runID, Limit: q.Limit}
	if len(preds) > 0 {
		sel.Filter = And{Predicates: preds}
	}
	return sel
}
