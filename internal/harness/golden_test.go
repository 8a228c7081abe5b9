package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_ChainABC(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/chain_abc.yaml")
	require.NoError(t, err)

	// Regenerate with:
	//   go test ./internal/harness -run TestRunWithGolden -update
	require.NoError(t, RunWithGolden(t, scenario))
}

func TestRunWithGolden_Galactic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/galactic.yaml")
	require.NoError(t, err)

	require.NoError(t, RunWithGolden(t, scenario))
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/chain_abcd.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestSnapshot_Canonical(t *testing.T) {
	result := NewResult()
	result.RunID = "r"
	result.Passes = 1
	result.Trace = []TraceEvent{
		{Seq: 1, Pass: 0, Rule: "seed", Origin: "A", Destination: "B", Label: "<L1>", Cost: 5},
	}

	data, err := Snapshot("s", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"passes":1,"run_id":"r","scenario_name":"s","trace":[{"cost":5,"destination":"B","label":"<L1>","origin":"A","pass":0,"rule":"seed","seq":1}]}`,
		string(data))
}
