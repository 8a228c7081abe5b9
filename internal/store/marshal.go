package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/reach/internal/ir"
)

// marshalEdges converts a run's edges to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON, the same bytes NetworkHash hashes.
func marshalEdges(edges []ir.Fact) (string, error) {
	if edges == nil {
		edges = []ir.Fact{}
	}
	data, err := ir.MarshalCanonical(edges)
	if err != nil {
		return "", fmt.Errorf("marshal edges: %w", err)
	}
	return string(data), nil
}

// unmarshalEdges parses canonical JSON TEXT back into edges.
// Costs are integers in canonical JSON, so decoding into int64 is exact.
func unmarshalEdges(data string) ([]ir.Fact, error) {
	if data == "" || data == "[]" {
		return []ir.Fact{}, nil
	}
	var edges []ir.Fact
	if err := json.Unmarshal([]byte(data), &edges); err != nil {
		return nil, fmt.Errorf("unmarshal edges: %w", err)
	}
	return edges, nil
}

// boolToInt maps the composed flag to its column value.
func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
