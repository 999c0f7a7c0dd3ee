package design

import (
	"errors"
	"testing"

	"contrastcore/pkg/domain"
)

func TestEncodeFactorExpandsRunBuckets(t *testing.T) {
	factor, err := EncodeFactor("Treatment", "C", []Run{
		{Level: "C", Count: 3},
		{Level: "T", Count: 3},
		{Level: "C", Count: 3},
		{Level: "T", Count: 3},
	}, 12)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got, want := len(factor.Assignments), 12; got != want {
		t.Fatalf("assignment length %d, want %d", got, want)
	}
	want := []string{"C", "C", "C", "T", "T", "T", "C", "C", "C", "T", "T", "T"}
	for i, w := range want {
		if factor.Assignments[i] != w {
			t.Fatalf("assignment[%d] = %s, want %s", i, factor.Assignments[i], w)
		}
	}
	if len(factor.Levels) != 2 || factor.Levels[0] != "C" || factor.Levels[1] != "T" {
		t.Fatalf("levels %v, want [C T] in first-appearance order", factor.Levels)
	}
	if factor.Reference != "C" {
		t.Fatalf("reference %s, want C", factor.Reference)
	}
}

func TestEncodeFactorRejectsMismatchedRunLengths(t *testing.T) {
	_, err := EncodeFactor("Treatment", "C", []Run{
		{Level: "C", Count: 3},
		{Level: "T", Count: 3},
	}, 12)
	var groupingErr domain.InvalidGroupingError
	if !errors.As(err, &groupingErr) {
		t.Fatalf("expected InvalidGroupingError, got %v", err)
	}
	if groupingErr.Expected != 12 || groupingErr.Got != 6 {
		t.Fatalf("unexpected error fields: %+v", groupingErr)
	}
}

func TestEncodeFactorRejectsBadRuns(t *testing.T) {
	if _, err := EncodeFactor("Treatment", "C", []Run{{Level: "C", Count: 0}}, 0); err == nil {
		t.Fatal("expected error for non-positive run count")
	}
	if _, err := EncodeFactor("Treatment", "X", []Run{{Level: "C", Count: 4}}, 4); err == nil {
		t.Fatal("expected error for absent reference level")
	}
	if _, err := EncodeFactor("", "C", []Run{{Level: "C", Count: 4}}, 4); err == nil {
		t.Fatal("expected error for empty factor name")
	}
}
