package memory

import "contrastcore/pkg/domain"

func cloneStudy(s domain.Study) domain.Study {
	out := s
	out.Samples = append([]domain.Sample(nil), s.Samples...)
	out.Factors = make([]domain.Factor, len(s.Factors))
	for i, f := range s.Factors {
		out.Factors[i] = cloneFactor(f)
	}
	return out
}

func cloneFactor(f domain.Factor) domain.Factor {
	out := f
	out.Levels = append([]string(nil), f.Levels...)
	out.Assignments = append([]string(nil), f.Assignments...)
	return out
}

func cloneDesign(d domain.Design) domain.Design {
	out := d
	out.Matrix = cloneMatrix(d.Matrix)
	return out
}

func cloneMatrix(m domain.DesignMatrix) domain.DesignMatrix {
	out := m
	out.Samples = append([]string(nil), m.Samples...)
	out.Columns = append([]string(nil), m.Columns...)
	out.Values = make([][]float64, len(m.Values))
	for i, row := range m.Values {
		out.Values[i] = append([]float64(nil), row...)
	}
	return out
}

func cloneResultTable(t domain.ResultTable) domain.ResultTable {
	out := t
	out.Contrast = cloneContrast(t.Contrast)
	out.Rows = append([]domain.ResultRow(nil), t.Rows...)
	return out
}

func cloneContrast(c domain.Contrast) domain.Contrast {
	out := c
	if c.Vector != nil {
		out.Vector = append([]float64(nil), c.Vector...)
	}
	if c.Request.Within != nil {
		within := make(map[string]string, len(c.Request.Within))
		for k, v := range c.Request.Within {
			within[k] = v
		}
		out.Request.Within = within
	}
	return out
}
