package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/chain_abc.yaml")
	require.NoError(t, err)

	assert.Equal(t, "chain_abc", s.Name)
	assert.Equal(t, "chain-abc", s.RunID)
	assert.Equal(t, []string{"A", "B", "C"}, s.Stations)
	require.Len(t, s.Routes, 2)
	assert.Equal(t, RouteStep{From: "A", Line: "L1", To: "B", Time: 10}, s.Routes[0])
	require.Len(t, s.Assertions, 4)
	assert.Equal(t, AssertFactPresent, s.Assertions[0].Type)
	require.NotNil(t, s.Assertions[0].Cost)
	assert.Equal(t, int64(30), *s.Assertions[0].Cost)
	assert.Nil(t, s.Ceiling)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "misspelled assertions"
routes: []
assertion:
  - type: fact_count
    count: 0
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nassertions: [{type: fact_count, count: 0}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nassertions: [{type: fact_count, count: 0}]",
			wantErr: "description is required",
		},
		{
			name:    "no assertions",
			yaml:    "name: n\ndescription: d",
			wantErr: "assertions list is required",
		},
		{
			name:    "negative ceiling",
			yaml:    "name: n\ndescription: d\nceiling: -1\nassertions: [{type: fact_count, count: 0}]",
			wantErr: "ceiling must be non-negative",
		},
		{
			name:    "route without line",
			yaml:    "name: n\ndescription: d\nroutes: [{from: A, to: B, time: 1}]\nassertions: [{type: fact_count, count: 0}]",
			wantErr: "routes[0]: line is required",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: n\ndescription: d\nassertions: [{type: trace_order}]",
			wantErr: `unknown assertion type "trace_order"`,
		},
		{
			name:    "fact_present without to",
			yaml:    "name: n\ndescription: d\nassertions: [{type: fact_present, from: A}]",
			wantErr: "from and to are required",
		},
		{
			name:    "fact_count without count",
			yaml:    "name: n\ndescription: d\nassertions: [{type: fact_count}]",
			wantErr: "count is required for fact_count",
		},
		{
			name:    "bad kind",
			yaml:    "name: n\ndescription: d\nassertions: [{type: fact_count, count: 1, kind: indirect}]",
			wantErr: "invalid kind",
		},
		{
			name:    "kind on pair_count",
			yaml:    "name: n\ndescription: d\nassertions: [{type: pair_count, from: A, to: B, count: 1, kind: direct}]",
			wantErr: "kind is only valid for fact_count",
		},
		{
			name:    "max_cost without cost",
			yaml:    "name: n\ndescription: d\nassertions: [{type: max_cost}]",
			wantErr: "cost is required for max_cost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScenario_Network(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: order
description: "stations first, then routes"
stations: [C, A]
routes:
  - { from: A, line: L1, to: B, time: 5 }
  - { from: C, line: L2, to: A, time: 7 }
assertions: [{type: fact_count, count: 4}]
`))
	require.NoError(t, err)

	net := s.Network()
	assert.Equal(t, "order", net.Name)
	var names []string
	for _, st := range net.Stations() {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{"C", "A", "B"}, names)

	edges := net.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, "C", edges[0].Origin)
	assert.Equal(t, "A", edges[1].Origin)
}

func TestScenario_CeilingOr(t *testing.T) {
	s := &Scenario{}
	assert.Equal(t, int64(120), s.CeilingOr(120))

	c := int64(0)
	s.Ceiling = &c
	assert.Equal(t, int64(0), s.CeilingOr(120))
}
