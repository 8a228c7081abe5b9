package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reach/internal/engine"
	"github.com/roach88/reach/internal/ir"
)

func decodeRuns(t *testing.T, output string) []ir.Run {
	t.Helper()
	var resp struct {
		Status string   `json:"status"`
		Data   []ir.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

// storeSecondRun adds a run to an existing database.
func storeSecondRun(t *testing.T, dbPath, dir, runID string, extra ...string) {
	t.Helper()
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		RunIDs:      engine.NewFixedGenerator(runID),
	}
	_, _ = execute(t, newRunCommandWith(opts), append([]string{"--db", dbPath, dir}, extra...)...)
}

func TestRunsLists(t *testing.T) {
	dbPath := storeRun(t, galacticDir, "run-a")
	storeSecondRun(t, dbPath, galacticDir, "run-b", "--max-passes", "1")

	cmd := NewRunsCommand(&RootOptions{Format: "json"})
	output, err := execute(t, cmd, "--db", dbPath)
	require.NoError(t, err)

	runs := decodeRuns(t, output)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-a", runs[0].ID)
	assert.Equal(t, ir.RunConverged, runs[0].State)
	assert.Empty(t, runs[0].Edges, "listings leave edges out")
	assert.Equal(t, "run-b", runs[1].ID)
	assert.Equal(t, ir.RunStopped, runs[1].State)
}

func TestRunsIncomplete(t *testing.T) {
	dbPath := storeRun(t, galacticDir, "run-a")
	storeSecondRun(t, dbPath, galacticDir, "run-b", "--max-passes", "1")

	cmd := NewRunsCommand(&RootOptions{Format: "json"})
	output, err := execute(t, cmd, "--db", dbPath, "--incomplete")
	require.NoError(t, err)

	runs := decodeRuns(t, output)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-b", runs[0].ID)
	assert.Equal(t, 15, runs[0].FactCount)
}

func TestRunsSameInput(t *testing.T) {
	dbPath := storeRun(t, galacticDir, "run-a")
	storeSecondRun(t, dbPath, galacticDir, "run-b", "--ceiling", "90")
	storeSecondRun(t, dbPath, galacticDir, "run-c")

	cmd := NewRunsCommand(&RootOptions{Format: "json"})
	output, err := execute(t, cmd, "--db", dbPath, "--same-input", "run-a")
	require.NoError(t, err)

	runs := decodeRuns(t, output)
	require.Len(t, runs, 2, "a different ceiling is a different input")
	assert.Equal(t, "run-a", runs[0].ID)
	assert.Equal(t, "run-c", runs[1].ID)
	assert.Equal(t, runs[0].ClosureHash, runs[1].ClosureHash)
}

func TestRunsSameInputUnknownRun(t *testing.T) {
	dbPath := storeRun(t, galacticDir, "run-a")

	cmd := NewRunsCommand(&RootOptions{Format: "text"})
	_, err := execute(t, cmd, "--db", dbPath, "--same-input", "nope")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: nope")
}

func TestRunsText(t *testing.T) {
	dbPath := storeRun(t, galacticDir, "run-a")

	cmd := NewRunsCommand(&RootOptions{Format: "text"})
	output, err := execute(t, cmd, "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, output, "run-a")
	assert.Contains(t, output, "Galactic")
	assert.Contains(t, output, "19 fact(s)")
	assert.Contains(t, output, "ceiling 120")
}

func TestRunsEmptyIncompleteJSON(t *testing.T) {
	dbPath := storeRun(t, galacticDir, "run-a")

	cmd := NewRunsCommand(&RootOptions{Format: "json"})
	output, err := execute(t, cmd, "--db", dbPath, "--incomplete")
	require.NoError(t, err)

	assert.Empty(t, decodeRuns(t, output))
	assert.Contains(t, output, `"data": []`)
}

func TestRunsMissingDatabase(t *testing.T) {
	cmd := NewRunsCommand(&RootOptions{Format: "text"})
	_, err := execute(t, cmd, "--db", filepath.Join(t.TempDir(), "missing.db"))

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
