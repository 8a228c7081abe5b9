package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/reach/internal/ir"
	"github.com/roach88/reach/internal/network"
	"github.com/roach88/reach/internal/rules"
	"github.com/roach88/reach/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// executeRun computes the closure of net under runID.
func executeRun(t *testing.T, runID string, net *network.Network) *rules.Outcome {
	t.Helper()
	out, err := rules.Execute(context.Background(), net, rules.RunConfig{
		RunID:   runID,
		Ceiling: rules.DefaultCeiling,
	})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	return out
}

// writeGalactic stores the Galactic closure under runID.
func writeGalactic(t *testing.T, s *Store, runID string) *rules.Outcome {
	t.Helper()
	out := executeRun(t, runID, testutil.Galactic())
	if _, err := s.WriteRun(context.Background(), out.Run, out.Derivations); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return out
}

// findDerivation returns the derivation of f, failing the test if absent.
func findDerivation(t *testing.T, ds []ir.Derivation, f ir.Fact) ir.Derivation {
	t.Helper()
	for _, d := range ds {
		if d.Fact == f {
			return d
		}
	}
	t.Fatalf("no derivation for %v", f)
	return ir.Derivation{}
}
