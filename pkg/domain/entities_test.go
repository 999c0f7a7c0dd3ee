package domain

import (
	"errors"
	"strings"
	"testing"
)

func validFactor() Factor {
	return Factor{
		Name:        "Treatment",
		Levels:      []string{"C", "T"},
		Reference:   "C",
		Assignments: []string{"C", "C", "T", "T"},
	}
}

func TestFactorValidate(t *testing.T) {
	if err := validFactor().Validate(4); err != nil {
		t.Fatalf("valid factor rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Factor)
		count  int
	}{
		{"empty name", func(f *Factor) { f.Name = "" }, 4},
		{"assignment count", func(*Factor) {}, 5},
		{"unknown reference", func(f *Factor) { f.Reference = "X" }, 4},
		{"duplicate level", func(f *Factor) { f.Levels = []string{"C", "C"} }, 4},
		{"unknown assignment", func(f *Factor) { f.Assignments[2] = "Z" }, 4},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := validFactor()
			c.mutate(&f)
			if err := f.Validate(c.count); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestFactorLevelAccessors(t *testing.T) {
	f := validFactor()
	if got := f.LevelIndex("T"); got != 1 {
		t.Fatalf("LevelIndex(T) = %d", got)
	}
	if got := f.LevelIndex("Z"); got != -1 {
		t.Fatalf("LevelIndex(Z) = %d", got)
	}
	nonRef := f.NonReferenceLevels()
	if len(nonRef) != 1 || nonRef[0] != "T" {
		t.Fatalf("NonReferenceLevels = %v", nonRef)
	}
}

func TestGroupLabelJoinsInSupplyOrder(t *testing.T) {
	if got := GroupLabel([]string{"T", "beach"}); got != "T.beach" {
		t.Fatalf("GroupLabel = %s", got)
	}
}

func TestDesignMatrixColumnIndex(t *testing.T) {
	m := DesignMatrix{Columns: []string{"Intercept", "Treatment.T"}}
	if got := m.ColumnIndex("Treatment.T"); got != 1 {
		t.Fatalf("ColumnIndex = %d", got)
	}
	if got := m.ColumnIndex("Location.beach"); got != -1 {
		t.Fatalf("ColumnIndex missing = %d", got)
	}
}

func TestContrastRequestString(t *testing.T) {
	req := ContrastRequest{Factor: "Treatment", Target: "T", Baseline: "C", Within: map[string]string{"Location": "beach"}}
	s := req.String()
	if !strings.Contains(s, "T vs C of Treatment") || !strings.Contains(s, "Location=beach") {
		t.Fatalf("String() = %q", s)
	}
}

func TestResultBlockingAndMerge(t *testing.T) {
	var res Result
	if res.HasBlocking() {
		t.Fatal("empty result must not block")
	}
	res.Merge(Result{Violations: []Violation{{Rule: "a", Severity: SeverityWarn}}})
	if res.HasBlocking() {
		t.Fatal("warnings must not block")
	}
	res.Merge(Result{Violations: []Violation{{Rule: "b", Severity: SeverityBlock, Message: "stop"}}})
	if !res.HasBlocking() {
		t.Fatal("blocking violation not detected")
	}
	err := RuleViolationError{Result: res}
	if !strings.Contains(err.Error(), "stop") {
		t.Fatalf("error = %q", err.Error())
	}
}

func TestErrNotFoundMessage(t *testing.T) {
	err := ErrNotFound{Entity: EntityDesign, ID: "d1"}
	if !strings.Contains(err.Error(), "design") || !strings.Contains(err.Error(), "d1") {
		t.Fatalf("error = %q", err.Error())
	}
	var nf ErrNotFound
	if !errors.As(error(err), &nf) {
		t.Fatal("errors.As failed")
	}
}
