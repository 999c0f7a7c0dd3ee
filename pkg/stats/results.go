package stats

import (
	"fmt"
	"math"

	"contrastcore/pkg/domain"
)

// Significant returns the rows whose adjusted p-value is at or below tau,
// preserving the input's relative order. The filter is stable, never re-sorts
// and is idempotent. tau must lie in (0,1].
func Significant(rows []domain.ResultRow, tau float64) ([]domain.ResultRow, error) {
	if math.IsNaN(tau) || tau <= 0 || tau > 1 {
		return nil, fmt.Errorf("threshold %v outside (0,1]", tau)
	}
	out := make([]domain.ResultRow, 0, len(rows))
	for _, r := range rows {
		if r.AdjPValue <= tau {
			out = append(out, r)
		}
	}
	return out, nil
}

// CountSignificant returns the number of rows passing the threshold.
func CountSignificant(rows []domain.ResultRow, tau float64) (int, error) {
	passing, err := Significant(rows, tau)
	if err != nil {
		return 0, err
	}
	return len(passing), nil
}

// Intersect returns the rows of a whose feature identifier also appears in b,
// in a's order. Identifiers match by exact equality, so the identifier sets
// of Intersect(a,b) and Intersect(b,a) are equal even though row order and
// statistics follow the first argument.
func Intersect(a, b []domain.ResultRow) []domain.ResultRow {
	inB := make(map[string]struct{}, len(b))
	for _, r := range b {
		inB[r.FeatureID] = struct{}{}
	}
	out := make([]domain.ResultRow, 0, len(a))
	for _, r := range a {
		if _, ok := inB[r.FeatureID]; ok {
			out = append(out, r)
		}
	}
	return out
}
