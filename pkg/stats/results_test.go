package stats

import (
	"math"
	"testing"

	"contrastcore/pkg/domain"
)

func row(id string, adj float64) domain.ResultRow {
	return domain.ResultRow{FeatureID: id, LogFC: 1, PValue: adj / 2, AdjPValue: adj}
}

func TestSignificantPreservesOrder(t *testing.T) {
	rows := []domain.ResultRow{
		row("g1", 0.0001),
		row("g2", 0.003),
		row("g3", 0.2),
		row("g4", 0.04),
		row("g5", 0.9),
	}
	got, err := Significant(rows, 0.05)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	want := []string{"g1", "g2", "g4"}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].FeatureID != id {
			t.Fatalf("row %d = %s, want %s", i, got[i].FeatureID, id)
		}
	}
}

func TestSignificantIsIdempotent(t *testing.T) {
	rows := []domain.ResultRow{row("g1", 0.01), row("g2", 0.5), row("g3", 0.02)}
	once, err := Significant(rows, 0.05)
	if err != nil {
		t.Fatalf("first filter: %v", err)
	}
	twice, err := Significant(once, 0.05)
	if err != nil {
		t.Fatalf("second filter: %v", err)
	}
	if len(once) != len(twice) {
		t.Fatalf("second pass changed row count: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("second pass changed row %d: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestSignificantRejectsBadThreshold(t *testing.T) {
	for _, tau := range []float64{0, -0.1, 1.5, math.NaN()} {
		if _, err := Significant(nil, tau); err == nil {
			t.Fatalf("expected error for tau=%v", tau)
		}
	}
	// tau=1 admits everything.
	got, err := Significant([]domain.ResultRow{row("g1", 1)}, 1)
	if err != nil {
		t.Fatalf("tau=1: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("tau=1 kept %d rows, want 1", len(got))
	}
}

func TestCountSignificant(t *testing.T) {
	rows := []domain.ResultRow{row("g1", 0.01), row("g2", 0.5)}
	n, err := CountSignificant(rows, 0.05)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
}

func TestIntersectFollowsFirstArgumentOrder(t *testing.T) {
	a := []domain.ResultRow{row("g3", 0.01), row("g1", 0.02), row("g2", 0.03)}
	b := []domain.ResultRow{row("g1", 0.001), row("g3", 0.002), row("g9", 0.003)}

	ab := Intersect(a, b)
	if len(ab) != 2 || ab[0].FeatureID != "g3" || ab[1].FeatureID != "g1" {
		t.Fatalf("Intersect(a,b) = %+v, want [g3 g1] in a's order", ab)
	}
	// Rows come from the first argument, not the second.
	if ab[0].AdjPValue != 0.01 {
		t.Fatalf("intersection row carries %v, want a's statistics", ab[0].AdjPValue)
	}

	ba := Intersect(b, a)
	idsAB := map[string]struct{}{}
	for _, r := range ab {
		idsAB[r.FeatureID] = struct{}{}
	}
	if len(ba) != len(ab) {
		t.Fatalf("identifier sets differ: %d vs %d", len(ba), len(ab))
	}
	for _, r := range ba {
		if _, ok := idsAB[r.FeatureID]; !ok {
			t.Fatalf("identifier %s only present one way", r.FeatureID)
		}
	}
}

func TestCountMatrixValidate(t *testing.T) {
	m := CountMatrix{
		Features: []string{"g1", "g2"},
		Samples:  []string{"s1", "s2", "s3"},
		Counts:   [][]float64{{1, 2, 3}, {4, 5, 6}},
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("valid matrix rejected: %v", err)
	}
	m.Counts = m.Counts[:1]
	if err := m.Validate(); err == nil {
		t.Fatal("expected row-count mismatch error")
	}
	m.Counts = [][]float64{{1, 2}, {3, 4}}
	if err := m.Validate(); err == nil {
		t.Fatal("expected column-count mismatch error")
	}
}
