// Package domain defines the entities and invariants of a differential
// expression study: samples, experimental factors, design matrices, contrasts
// and per-feature test results. Statistical model fitting lives behind the
// stats.Engine boundary; this package only describes valid inputs and outputs.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// EntityType enumerates the persisted entity kinds.
type EntityType string

const (
	EntityStudy       EntityType = "study"
	EntityDesign      EntityType = "design"
	EntityResultTable EntityType = "result_table"
)

// Base carries identity and audit timestamps shared by persisted entities.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sample is one sequenced biological replicate. Samples are created once from
// an externally supplied ordered list and never mutated; their order fixes the
// row order of every design matrix built for the study.
type Sample struct {
	ID string `json:"id"`
}

// Factor is a named categorical variable over a study's samples: an ordered
// level set, a designated reference level, and one level assignment per
// sample in sample order.
type Factor struct {
	Name        string   `json:"name"`
	Levels      []string `json:"levels"`
	Reference   string   `json:"reference"`
	Assignments []string `json:"assignments"`
}

// LevelIndex returns the position of level in the factor's declared level
// order, or -1 when the level is unknown.
func (f Factor) LevelIndex(level string) int {
	for i, l := range f.Levels {
		if l == level {
			return i
		}
	}
	return -1
}

// HasLevel reports whether level belongs to the factor.
func (f Factor) HasLevel(level string) bool { return f.LevelIndex(level) >= 0 }

// NonReferenceLevels returns the factor's levels with the reference removed,
// preserving declared order.
func (f Factor) NonReferenceLevels() []string {
	out := make([]string, 0, len(f.Levels)-1)
	for _, l := range f.Levels {
		if l != f.Reference {
			out = append(out, l)
		}
	}
	return out
}

// Validate checks internal consistency against the expected sample count.
func (f Factor) Validate(sampleCount int) error {
	if f.Name == "" {
		return fmt.Errorf("factor name required")
	}
	if len(f.Assignments) != sampleCount {
		return fmt.Errorf("factor %s: %d assignments for %d samples", f.Name, len(f.Assignments), sampleCount)
	}
	if !f.HasLevel(f.Reference) {
		return fmt.Errorf("factor %s: reference level %s not among levels", f.Name, f.Reference)
	}
	seen := make(map[string]struct{}, len(f.Levels))
	for _, l := range f.Levels {
		if _, dup := seen[l]; dup {
			return fmt.Errorf("factor %s: duplicate level %s", f.Name, l)
		}
		seen[l] = struct{}{}
	}
	for i, a := range f.Assignments {
		if !f.HasLevel(a) {
			return fmt.Errorf("factor %s: sample %d assigned unknown level %s", f.Name, i, a)
		}
	}
	return nil
}

// Parametrization selects how factors are encoded into design columns.
type Parametrization string

const (
	// ParamWithIntercept absorbs each factor's reference level into an
	// intercept column and adds indicator plus interaction columns for the
	// remaining levels.
	ParamWithIntercept Parametrization = "with-intercept"
	// ParamCombinedGroups concatenates factor levels into a single combined
	// group per sample and emits one indicator column per group, without an
	// intercept.
	ParamCombinedGroups Parametrization = "no-intercept-combined-group"
)

// GroupSeparator joins factor levels into combined-group labels. The rule is
// fixed so that column order and naming are reproducible across runs.
const GroupSeparator = "."

// GroupLabel builds the combined-group label for the given per-factor levels,
// joined in factor-supply order.
func GroupLabel(levels []string) string {
	return strings.Join(levels, GroupSeparator)
}

// DesignMatrix is the model matrix handed to the statistics engine: one row
// per sample in study sample order, one column per coefficient. Column names
// derive only from factor names and levels, never from row data.
type DesignMatrix struct {
	Parametrization Parametrization `json:"parametrization"`
	Samples         []string        `json:"samples"`
	Columns         []string        `json:"columns"`
	Values          [][]float64     `json:"values"`
}

// NRows returns the number of samples (rows).
func (m DesignMatrix) NRows() int { return len(m.Values) }

// NCols returns the number of coefficients (columns).
func (m DesignMatrix) NCols() int { return len(m.Columns) }

// ColumnIndex returns the position of the named column, or -1 when absent.
func (m DesignMatrix) ColumnIndex(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// ContrastRequest is a symbolic comparison: target level against baseline
// level of one factor, with every other factor held at a fixed level.
type ContrastRequest struct {
	Factor   string            `json:"factor"`
	Target   string            `json:"target"`
	Baseline string            `json:"baseline"`
	Within   map[string]string `json:"within,omitempty"`
}

func (r ContrastRequest) String() string {
	var within []string
	for f, l := range r.Within {
		within = append(within, f+"="+l)
	}
	s := fmt.Sprintf("%s vs %s of %s", r.Target, r.Baseline, r.Factor)
	if len(within) > 0 {
		s += " within " + strings.Join(within, ",")
	}
	return s
}

// Contrast is a resolved comparison: either a single coefficient index into a
// design matrix's columns, or a vector of coefficient weights of matching
// length. A contrast is built per research question, consumed once by the
// engine, and kept on the stored result table for audit.
type Contrast struct {
	Request     ContrastRequest `json:"request"`
	Coefficient int             `json:"coefficient"`
	Vector      []float64       `json:"vector,omitempty"`
}

// IsCoefficient reports whether the contrast names a single coefficient
// rather than a weight vector.
func (c Contrast) IsCoefficient() bool { return c.Vector == nil }

// ResultRow is one feature's test statistics as produced by the engine. Rows
// are never mutated, only filtered and reordered.
type ResultRow struct {
	FeatureID string  `json:"feature_id"`
	LogFC     float64 `json:"log_fc"`
	PValue    float64 `json:"p_value"`
	AdjPValue float64 `json:"adj_p_value"`
}

// Study groups an ordered sample list with the factors describing its layout.
type Study struct {
	Base
	Name    string   `json:"name"`
	Samples []Sample `json:"samples"`
	Factors []Factor `json:"factors"`
}

// SampleIDs returns the sample identifiers in study order.
func (s Study) SampleIDs() []string {
	out := make([]string, len(s.Samples))
	for i, smp := range s.Samples {
		out[i] = smp.ID
	}
	return out
}

// Factor returns the named factor and whether it exists.
func (s Study) Factor(name string) (Factor, bool) {
	for _, f := range s.Factors {
		if f.Name == name {
			return f, true
		}
	}
	return Factor{}, false
}

// Design is a persisted design matrix bound to its study.
type Design struct {
	Base
	StudyID string       `json:"study_id"`
	Matrix  DesignMatrix `json:"matrix"`
}

// ResultTable is a persisted, named sequence of per-feature results for one
// resolved contrast, in the significance order the engine produced.
type ResultTable struct {
	Base
	StudyID  string      `json:"study_id"`
	DesignID string      `json:"design_id"`
	Name     string      `json:"name"`
	Contrast Contrast    `json:"contrast"`
	Rows     []ResultRow `json:"rows"`
}
