package domain

import (
	"fmt"
	"strings"
)

// InvalidGroupingError reports run-length groupings that do not cover the
// study's sample count.
type InvalidGroupingError struct {
	Factor   string
	Expected int
	Got      int
}

func (e InvalidGroupingError) Error() string {
	return fmt.Sprintf("factor %s: run lengths sum to %d, study has %d samples", e.Factor, e.Got, e.Expected)
}

// RankDeficientDesignError reports a design matrix whose rank is below its
// column count: aliased coefficients, duplicated columns or levels with no
// samples. Such designs must fail before reaching the statistics engine.
type RankDeficientDesignError struct {
	Columns []string
	Rank    int
	Reason  string
}

func (e RankDeficientDesignError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("rank-deficient design: %s", e.Reason)
	}
	return fmt.Sprintf("rank-deficient design: rank %d over %d columns (%s)", e.Rank, len(e.Columns), strings.Join(e.Columns, ","))
}

// AmbiguousContrastError reports a contrast request that does not resolve to
// a unique combination of at most two non-zero coefficient columns. Only
// pairwise group-mean differences are supported.
type AmbiguousContrastError struct {
	Request ContrastRequest
	Columns []string
}

func (e AmbiguousContrastError) Error() string {
	if len(e.Columns) == 0 {
		return fmt.Sprintf("contrast %s resolves to no design columns", e.Request)
	}
	return fmt.Sprintf("contrast %s resolves to %d columns (%s), want at most two", e.Request, len(e.Columns), strings.Join(e.Columns, ","))
}

// ErrNotFound is returned when an entity lookup fails inside a transaction.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
