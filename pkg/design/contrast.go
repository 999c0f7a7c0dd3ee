package design

import (
	"fmt"
	"sort"

	"contrastcore/pkg/domain"
)

// ResolveContrast turns a symbolic comparison into either a single
// coefficient index or a weight vector over the design's columns. Resolution
// is by level name only; positional coefficient numbering is never exposed.
//
// The request's Within map must pin every factor other than the compared one
// to a fixed level. The resulting weights are the target group's mean terms
// minus the baseline group's, so shared terms cancel: in a combined-group
// design this is +1/-1 over two group columns, and in a with-intercept design
// a comparison against the reference collapses to one coefficient.
// Comparisons spanning more than two coefficient columns are rejected with
// domain.AmbiguousContrastError.
func ResolveContrast(m domain.DesignMatrix, factors []domain.Factor, req domain.ContrastRequest) (domain.Contrast, error) {
	factor, ok := findFactor(factors, req.Factor)
	if !ok {
		return domain.Contrast{}, fmt.Errorf("unknown factor %s", req.Factor)
	}
	if !factor.HasLevel(req.Target) {
		return domain.Contrast{}, fmt.Errorf("factor %s has no level %s", req.Factor, req.Target)
	}
	if !factor.HasLevel(req.Baseline) {
		return domain.Contrast{}, fmt.Errorf("factor %s has no level %s", req.Factor, req.Baseline)
	}
	if req.Target == req.Baseline {
		return domain.Contrast{}, fmt.Errorf("contrast compares level %s to itself", req.Target)
	}
	for _, f := range factors {
		if f.Name == req.Factor {
			continue
		}
		level, ok := req.Within[f.Name]
		if !ok {
			return domain.Contrast{}, fmt.Errorf("contrast must hold factor %s at a fixed level", f.Name)
		}
		if !f.HasLevel(level) {
			return domain.Contrast{}, fmt.Errorf("factor %s has no level %s", f.Name, level)
		}
	}

	target, err := groupWeights(m, factors, req, req.Target)
	if err != nil {
		return domain.Contrast{}, err
	}
	baseline, err := groupWeights(m, factors, req, req.Baseline)
	if err != nil {
		return domain.Contrast{}, err
	}
	for col, w := range baseline {
		target[col] -= w
	}

	var cols []int
	for col, w := range target {
		if w != 0 {
			cols = append(cols, col)
		}
	}
	sort.Ints(cols)
	if len(cols) == 0 || len(cols) > 2 {
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = m.Columns[c]
		}
		return domain.Contrast{}, domain.AmbiguousContrastError{Request: req, Columns: names}
	}
	if len(cols) == 1 && target[cols[0]] == 1 {
		return domain.Contrast{Request: req, Coefficient: cols[0]}, nil
	}

	vector := make([]float64, m.NCols())
	for _, c := range cols {
		vector[c] = target[c]
	}
	return domain.Contrast{Request: req, Coefficient: -1, Vector: vector}, nil
}

// groupWeights returns the coefficient weights making up the mean of the
// group where the compared factor sits at level and every other factor sits
// at its Within level.
func groupWeights(m domain.DesignMatrix, factors []domain.Factor, req domain.ContrastRequest, level string) (map[int]float64, error) {
	levelOf := func(f domain.Factor) string {
		if f.Name == req.Factor {
			return level
		}
		return req.Within[f.Name]
	}

	weights := make(map[int]float64)
	switch m.Parametrization {
	case domain.ParamCombinedGroups:
		labels := make([]string, len(factors))
		for i, f := range factors {
			labels[i] = levelOf(f)
		}
		label := domain.GroupLabel(labels)
		col := m.ColumnIndex(label)
		if col < 0 {
			return nil, domain.AmbiguousContrastError{Request: req}
		}
		weights[col] = 1
	case domain.ParamWithIntercept:
		col := m.ColumnIndex(InterceptColumn)
		if col < 0 {
			return nil, fmt.Errorf("design has no %s column", InterceptColumn)
		}
		weights[col] = 1
		for i, fa := range factors {
			la := levelOf(fa)
			if la != fa.Reference {
				idx := m.ColumnIndex(mainEffectName(fa, la))
				if idx < 0 {
					return nil, fmt.Errorf("design has no column for %s level %s", fa.Name, la)
				}
				weights[idx] = 1
			}
			for j := i + 1; j < len(factors); j++ {
				fb := factors[j]
				lb := levelOf(fb)
				if la == fa.Reference || lb == fb.Reference {
					continue
				}
				idx := m.ColumnIndex(interactionName(fa, la, fb, lb))
				if idx < 0 {
					return nil, fmt.Errorf("design has no interaction column for %s.%s and %s.%s", fa.Name, la, fb.Name, lb)
				}
				weights[idx] = 1
			}
		}
	default:
		return nil, fmt.Errorf("unknown parametrization %q", m.Parametrization)
	}
	return weights, nil
}

func findFactor(factors []domain.Factor, name string) (domain.Factor, bool) {
	for _, f := range factors {
		if f.Name == name {
			return f, true
		}
	}
	return domain.Factor{}, false
}
