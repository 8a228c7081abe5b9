package store

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/roach88/reach/internal/ir"
	"github.com/roach88/reach/internal/queryir"
	"github.com/roach88/reach/internal/testutil"
)

func TestReadRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	out := writeGalactic(t, s, "run-1")

	got, err := s.ReadRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if !reflect.DeepEqual(got, out.Run) {
		t.Errorf("ReadRun() = %+v\nwant %+v", got, out.Run)
	}
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadRun() error = %v, want sql.ErrNoRows", err)
	}
}

func TestListRuns_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-b", "run-a", "run-c"} {
		writeGalactic(t, s, id)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
		if r.Edges != nil {
			t.Errorf("ListRuns() loaded edges for %s", r.ID)
		}
	}
	if want := []string{"run-a", "run-b", "run-c"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ListRuns() ids = %v, want %v", ids, want)
	}
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("ListRuns() = %#v, want empty non-nil slice", runs)
	}
}

func TestReadFacts_DerivationOrder(t *testing.T) {
	s := createTestStore(t)
	out := writeGalactic(t, s, "run-1")

	facts, err := s.ReadFacts(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("ReadFacts() failed: %v", err)
	}
	if !reflect.DeepEqual(facts, out.Facts) {
		t.Errorf("ReadFacts() = %v\nwant %v", facts, out.Facts)
	}
}

func TestReadFacts_RunsAreIsolated(t *testing.T) {
	s := createTestStore(t)
	writeGalactic(t, s, "galactic")
	chain := executeRun(t, "chain", testutil.Chain(50, 50))
	if _, err := s.WriteRun(context.Background(), chain.Run, chain.Derivations); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	facts, err := s.ReadFacts(context.Background(), "chain")
	if err != nil {
		t.Fatalf("ReadFacts() failed: %v", err)
	}
	if len(facts) != 3 {
		t.Errorf("ReadFacts(chain) = %d facts, want 3", len(facts))
	}
}

func TestReadDerivations_MatchEngine(t *testing.T) {
	s := createTestStore(t)
	out := writeGalactic(t, s, "run-1")

	ds, err := s.ReadDerivations(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("ReadDerivations() failed: %v", err)
	}
	if !reflect.DeepEqual(ds, out.Derivations) {
		t.Errorf("ReadDerivations() differs from engine derivations\ngot  %+v\nwant %+v", ds, out.Derivations)
	}
}

func TestReadDerivation_ByIDAndPrefix(t *testing.T) {
	s := createTestStore(t)
	out := writeGalactic(t, s, "run-1")
	ctx := context.Background()

	want := findDerivation(t, out.Derivations, ir.Fact{
		Origin: "Tatooine", Destination: "Hoth",
		Label: "Ruta 1 + Ruta 2 + Ruta 3", Cost: 60,
	})

	got, err := s.ReadDerivation(ctx, "run-1", want.FactID)
	if err != nil {
		t.Fatalf("ReadDerivation() failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadDerivation() = %+v, want %+v", got, want)
	}
	if len(got.Parents) != 2 {
		t.Errorf("parents = %v, want 2", got.Parents)
	}

	got, err = s.ReadDerivation(ctx, "run-1", want.FactID[:16])
	if err != nil {
		t.Fatalf("ReadDerivation(prefix) failed: %v", err)
	}
	if got.FactID != want.FactID {
		t.Errorf("prefix resolved to %s, want %s", got.FactID, want.FactID)
	}
}

func TestReadDerivation_Errors(t *testing.T) {
	s := createTestStore(t)
	writeGalactic(t, s, "run-1")
	ctx := context.Background()

	if _, err := s.ReadDerivation(ctx, "run-1", ""); err == nil {
		t.Error("empty fact ID should fail")
	}
	if _, err := s.ReadDerivation(ctx, "run-1", "zzzz"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("unknown fact error = %v, want sql.ErrNoRows", err)
	}
	// A one-character hex prefix matches several of 19 facts.
	ambiguous := 0
	for _, p := range "0123456789abcdef" {
		if _, err := s.ReadDerivation(ctx, "run-1", string(p)); err != nil && strings.Contains(err.Error(), "ambiguous") {
			ambiguous++
		}
	}
	if ambiguous == 0 {
		t.Error("expected at least one ambiguous single-character prefix")
	}
}

func TestReadChildren(t *testing.T) {
	s := createTestStore(t)
	out := writeGalactic(t, s, "run-1")

	parent := findDerivation(t, out.Derivations, ir.Fact{
		Origin: "Tatooine", Destination: "Alderaan", Label: "Ruta 1", Cost: 10,
	})

	children, err := s.ReadChildren(context.Background(), "run-1", parent.FactID)
	if err != nil {
		t.Fatalf("ReadChildren() failed: %v", err)
	}

	var labels []string
	for _, c := range children {
		labels = append(labels, c.Fact.Label)
	}
	want := []string{"Ruta 1 + Ruta 2", "Ruta 1 + Ruta 2 + Ruta 3"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("children = %v, want %v", labels, want)
	}
}

func TestQueryFacts(t *testing.T) {
	s := createTestStore(t)
	writeGalactic(t, s, "run-1")
	ctx := context.Background()
	maxCost := int64(60)

	tests := []struct {
		name  string
		query queryir.FactQuery
		want  int
	}{
		{"all", queryir.FactQuery{}, 19},
		{"direct", queryir.FactQuery{Kind: queryir.KindDirect}, 10},
		{"composed", queryir.FactQuery{Kind: queryir.KindComposed}, 9},
		{"from tatooine", queryir.FactQuery{Origin: "Tatooine"}, 4},
		{"to hoth", queryir.FactQuery{Destination: "Hoth"}, 3},
		{"cheap composed", queryir.FactQuery{Kind: queryir.KindComposed, MaxCost: &maxCost}, 3},
		{"limit", queryir.FactQuery{Limit: 2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := s.QueryFacts(ctx, "run-1", tt.query)
			if err != nil {
				t.Fatalf("QueryFacts() failed: %v", err)
			}
			if len(ds) != tt.want {
				t.Errorf("QueryFacts() = %d rows, want %d", len(ds), tt.want)
			}
			for i := 1; i < len(ds); i++ {
				if ds[i].Seq <= ds[i-1].Seq {
					t.Errorf("results not in seq order at %d", i)
				}
			}
		})
	}
}

func TestQueryFacts_Invalid(t *testing.T) {
	s := createTestStore(t)
	neg := int64(-1)

	if _, err := s.QueryFacts(context.Background(), "run-1", queryir.FactQuery{MaxCost: &neg}); err == nil {
		t.Error("negative max cost should fail")
	}
	if _, err := s.QueryFacts(context.Background(), "", queryir.FactQuery{}); err == nil {
		t.Error("missing run ID should fail")
	}
}
