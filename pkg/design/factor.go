// Package design builds experimental factors, design matrices and contrasts
// for differential expression studies. Everything here is a pure
// transformation over in-memory tables; validation failures surface as typed
// domain errors before any statistics engine is invoked.
package design

import (
	"fmt"

	"contrastcore/pkg/domain"
)

// Run is one run-length bucket of a factor layout: count consecutive samples
// at the given level.
type Run struct {
	Level string
	Count int
}

// EncodeFactor expands run-length groupings into a per-sample level
// assignment of length sampleCount. Level order is first-appearance order in
// the runs. Returns domain.InvalidGroupingError when the run lengths do not
// sum to sampleCount.
func EncodeFactor(name, reference string, runs []Run, sampleCount int) (domain.Factor, error) {
	if name == "" {
		return domain.Factor{}, fmt.Errorf("factor name required")
	}
	if len(runs) == 0 {
		return domain.Factor{}, fmt.Errorf("factor %s: at least one run required", name)
	}

	total := 0
	var levels []string
	seen := make(map[string]struct{})
	for _, r := range runs {
		if r.Level == "" {
			return domain.Factor{}, fmt.Errorf("factor %s: empty level in run", name)
		}
		if r.Count <= 0 {
			return domain.Factor{}, fmt.Errorf("factor %s: run for level %s has non-positive count %d", name, r.Level, r.Count)
		}
		if _, ok := seen[r.Level]; !ok {
			seen[r.Level] = struct{}{}
			levels = append(levels, r.Level)
		}
		total += r.Count
	}
	if total != sampleCount {
		return domain.Factor{}, domain.InvalidGroupingError{Factor: name, Expected: sampleCount, Got: total}
	}
	if _, ok := seen[reference]; !ok {
		return domain.Factor{}, fmt.Errorf("factor %s: reference level %s never appears in runs", name, reference)
	}

	assignments := make([]string, 0, total)
	for _, r := range runs {
		for i := 0; i < r.Count; i++ {
			assignments = append(assignments, r.Level)
		}
	}

	return domain.Factor{
		Name:        name,
		Levels:      levels,
		Reference:   reference,
		Assignments: assignments,
	}, nil
}
