// Package stats defines the boundary to the statistical modeling engine and
// the result-table operations that run on this side of it. Dispersion
// estimation, negative-binomial GLM fitting, likelihood-ratio testing and
// p-value adjustment are the engine's responsibility; this package only
// shapes its inputs and filters its outputs.
package stats

import (
	"context"
	"fmt"

	"contrastcore/pkg/domain"
)

// CountMatrix is the feature-by-sample count table handed to the engine.
// Rows follow Features order, columns follow Samples order.
type CountMatrix struct {
	Features []string    `json:"features"`
	Samples  []string    `json:"samples"`
	Counts   [][]float64 `json:"counts"`
}

// Validate checks the matrix shape.
func (m CountMatrix) Validate() error {
	if len(m.Counts) != len(m.Features) {
		return fmt.Errorf("count matrix has %d rows for %d features", len(m.Counts), len(m.Features))
	}
	for i, row := range m.Counts {
		if len(row) != len(m.Samples) {
			return fmt.Errorf("feature %s has %d counts for %d samples", m.Features[i], len(row), len(m.Samples))
		}
	}
	return nil
}

// AdjustMethod names a multiple-testing correction procedure implemented by
// the engine.
type AdjustMethod string

const (
	// AdjustBH is Benjamini-Hochberg false discovery rate control.
	AdjustBH AdjustMethod = "BH"
	// AdjustBonferroni is Bonferroni family-wise error control.
	AdjustBonferroni AdjustMethod = "bonferroni"
)

// DispersionModel is an engine-owned handle for estimated per-feature
// overdispersion. Its contents are opaque to this module.
type DispersionModel interface {
	// EngineName identifies the producing engine for audit trails.
	EngineName() string
}

// FittedModel is an engine-owned handle for fitted per-feature GLMs.
type FittedModel interface {
	EngineName() string
}

// Engine is the external statistical collaborator. Implementations receive a
// validated count matrix and a full-rank design matrix and are trusted for
// numerical correctness; their failures propagate unchanged.
type Engine interface {
	EstimateDispersion(ctx context.Context, counts CountMatrix, design domain.DesignMatrix) (DispersionModel, error)
	FitModel(ctx context.Context, counts CountMatrix, dispersion DispersionModel, design domain.DesignMatrix) (FittedModel, error)
	// LikelihoodRatioTest returns one row per feature, ordered by
	// significance (smallest p-value first).
	LikelihoodRatioTest(ctx context.Context, fitted FittedModel, contrast domain.Contrast) ([]domain.ResultRow, error)
	// AdjustPValues fills AdjPValue on each row, preserving row order.
	AdjustPValues(rows []domain.ResultRow, method AdjustMethod) ([]domain.ResultRow, error)
}
