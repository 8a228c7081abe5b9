package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reach/internal/engine"
)

// galacticDir holds the eleven-station Galactic network.
var galacticDir = filepath.Join("..", "..", "testdata", "networks")

// writeNetworks writes CUE files into a fresh directory and returns it.
func writeNetworks(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

// execute runs cmd with args and returns everything it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// storeRun runs the network in dir into a fresh database under a fixed run
// ID and returns the database path.
func storeRun(t *testing.T, dir, runID string, extra ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "reach.db")

	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		RunIDs:      engine.NewFixedGenerator(runID),
	}
	cmd := newRunCommandWith(opts)
	args := append([]string{"--db", dbPath, dir}, extra...)
	_, err := execute(t, cmd, args...)
	if err != nil {
		require.Equal(t, ExitFailure, GetExitCode(err), "unexpected run error: %v", err)
	}
	return dbPath
}

const chainNetwork = `
package test

network: Chain: {
	ceiling: 100
	routes: [
		{from: "A", line: "L1", to: "B", time: 10},
		{from: "B", line: "L2", to: "C", time: 20},
		{from: "C", line: "L3", to: "D", time: 30},
	]
}
`
