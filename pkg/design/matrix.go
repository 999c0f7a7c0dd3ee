package design

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"contrastcore/pkg/domain"
)

// InterceptColumn is the fixed name of the all-ones column in
// with-intercept designs.
const InterceptColumn = "Intercept"

// Build constructs the design matrix for the given factors over samples, in
// the requested parametrization. Row order is sample order. Column names and
// order depend only on factor names and declared level orders, so contrast
// indices stay stable across runs. Returns domain.RankDeficientDesignError
// when any coefficient would be aliased or unestimable.
func Build(samples []string, factors []domain.Factor, p domain.Parametrization) (domain.DesignMatrix, error) {
	if len(samples) == 0 {
		return domain.DesignMatrix{}, fmt.Errorf("no samples")
	}
	if len(factors) == 0 {
		return domain.DesignMatrix{}, fmt.Errorf("no factors")
	}
	for _, f := range factors {
		if err := f.Validate(len(samples)); err != nil {
			return domain.DesignMatrix{}, err
		}
	}

	var columns []string
	var values [][]float64
	var err error
	switch p {
	case domain.ParamWithIntercept:
		columns, values = buildWithIntercept(samples, factors)
	case domain.ParamCombinedGroups:
		columns, values, err = buildCombinedGroups(samples, factors)
		if err != nil {
			return domain.DesignMatrix{}, err
		}
	default:
		return domain.DesignMatrix{}, fmt.Errorf("unknown parametrization %q", p)
	}

	m := domain.DesignMatrix{
		Parametrization: p,
		Samples:         append([]string(nil), samples...),
		Columns:         columns,
		Values:          values,
	}
	if err := verifyFullRank(m); err != nil {
		return domain.DesignMatrix{}, err
	}
	return m, nil
}

func buildWithIntercept(samples []string, factors []domain.Factor) ([]string, [][]float64) {
	columns := []string{InterceptColumn}
	type indicator struct {
		factor int
		level  string
	}
	var mains []indicator
	for fi, f := range factors {
		for _, l := range f.NonReferenceLevels() {
			columns = append(columns, mainEffectName(f, l))
			mains = append(mains, indicator{factor: fi, level: l})
		}
	}
	type product struct{ a, b indicator }
	var products []product
	for i := 0; i < len(factors); i++ {
		for j := i + 1; j < len(factors); j++ {
			for _, li := range factors[i].NonReferenceLevels() {
				for _, lj := range factors[j].NonReferenceLevels() {
					columns = append(columns, interactionName(factors[i], li, factors[j], lj))
					products = append(products, product{
						a: indicator{factor: i, level: li},
						b: indicator{factor: j, level: lj},
					})
				}
			}
		}
	}

	values := make([][]float64, len(samples))
	for row := range samples {
		v := make([]float64, len(columns))
		v[0] = 1
		col := 1
		for _, ind := range mains {
			if factors[ind.factor].Assignments[row] == ind.level {
				v[col] = 1
			}
			col++
		}
		for _, pr := range products {
			if factors[pr.a.factor].Assignments[row] == pr.a.level &&
				factors[pr.b.factor].Assignments[row] == pr.b.level {
				v[col] = 1
			}
			col++
		}
		values[row] = v
	}
	return columns, values
}

func buildCombinedGroups(samples []string, factors []domain.Factor) ([]string, [][]float64, error) {
	// Enumerate every combination of declared levels with the first factor
	// varying fastest, so the last factor's blocks stay contiguous.
	total := 1
	for _, f := range factors {
		total *= len(f.Levels)
	}
	columns := make([]string, 0, total)
	for n := 0; n < total; n++ {
		rem := n
		levels := make([]string, len(factors))
		for i, f := range factors {
			levels[i] = f.Levels[rem%len(f.Levels)]
			rem /= len(f.Levels)
		}
		columns = append(columns, domain.GroupLabel(levels))
	}

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	values := make([][]float64, len(samples))
	occupied := make([]int, len(columns))
	for row := range samples {
		levels := make([]string, len(factors))
		for i, f := range factors {
			levels[i] = f.Assignments[row]
		}
		label := domain.GroupLabel(levels)
		col, ok := index[label]
		if !ok {
			return nil, nil, fmt.Errorf("sample %s: combined group %s not derivable from declared levels", samples[row], label)
		}
		v := make([]float64, len(columns))
		v[col] = 1
		values[row] = v
		occupied[col]++
	}
	for i, n := range occupied {
		if n == 0 {
			return nil, nil, domain.RankDeficientDesignError{
				Columns: columns,
				Reason:  fmt.Sprintf("combined group %s has no samples", columns[i]),
			}
		}
	}
	return columns, values, nil
}

func mainEffectName(f domain.Factor, level string) string {
	return f.Name + domain.GroupSeparator + level
}

func interactionName(fa domain.Factor, la string, fb domain.Factor, lb string) string {
	return mainEffectName(fa, la) + ":" + mainEffectName(fb, lb)
}

// verifyFullRank rejects matrices whose rank is below the column count.
// Identical and empty columns are reported by name before falling back to a
// singular value decomposition for the general collinear case.
func verifyFullRank(m domain.DesignMatrix) error {
	rows, cols := m.NRows(), m.NCols()
	if rows < cols {
		return domain.RankDeficientDesignError{
			Columns: m.Columns,
			Rank:    rows,
			Reason:  fmt.Sprintf("%d coefficients over %d samples", cols, rows),
		}
	}
	for i := 0; i < cols; i++ {
		empty := true
		for r := 0; r < rows; r++ {
			if m.Values[r][i] != 0 {
				empty = false
				break
			}
		}
		if empty {
			return domain.RankDeficientDesignError{
				Columns: m.Columns,
				Reason:  fmt.Sprintf("column %s has no samples", m.Columns[i]),
			}
		}
		for j := i + 1; j < cols; j++ {
			same := true
			for r := 0; r < rows; r++ {
				if m.Values[r][i] != m.Values[r][j] {
					same = false
					break
				}
			}
			if same {
				return domain.RankDeficientDesignError{
					Columns: m.Columns,
					Reason:  fmt.Sprintf("columns %s and %s are identical", m.Columns[i], m.Columns[j]),
				}
			}
		}
	}

	flat := make([]float64, 0, rows*cols)
	for _, row := range m.Values {
		flat = append(flat, row...)
	}
	var svd mat.SVD
	if !svd.Factorize(mat.NewDense(rows, cols, flat), mat.SVDNone) {
		return fmt.Errorf("svd factorization failed for %dx%d design", rows, cols)
	}
	values := svd.Values(nil)
	tol := float64(rows) * 1e-12 * values[0]
	rank := 0
	for _, sv := range values {
		if sv > tol {
			rank++
		}
	}
	if rank < cols {
		return domain.RankDeficientDesignError{Columns: m.Columns, Rank: rank}
	}
	return nil
}
