// Package counts loads and reshapes RNA-seq count tables. Each stage returns
// a new table; nothing here mutates shared state, so downstream design and
// engine inputs never depend on call order.
package counts

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"contrastcore/pkg/stats"
)

// Feature is one measured feature (gene) with its descriptor column values.
// The first descriptor column is the feature identifier.
type Feature struct {
	ID    string   `json:"id"`
	Attrs []string `json:"attrs,omitempty"`
}

// Table is a feature-by-sample count table. Row order follows Features,
// column order follows Samples.
type Table struct {
	Descriptors []string    `json:"descriptors"`
	Features    []Feature   `json:"features"`
	Samples     []string    `json:"samples"`
	Counts      [][]float64 `json:"counts"`
}

// ParseTSV reads a tab-separated count table whose header row carries
// descriptorCols leading feature-descriptor names followed by one column per
// sample.
func ParseTSV(r io.Reader, descriptorCols int) (*Table, error) {
	if descriptorCols < 1 {
		return nil, fmt.Errorf("need at least one descriptor column, got %d", descriptorCols)
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("empty count table")
	}
	header := strings.Split(scanner.Text(), "\t")
	if len(header) <= descriptorCols {
		return nil, fmt.Errorf("header has %d columns, need more than %d descriptors", len(header), descriptorCols)
	}
	t := &Table{
		Descriptors: header[:descriptorCols],
		Samples:     header[descriptorCols:],
	}

	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != len(header) {
			return nil, fmt.Errorf("line %d: %d columns, want %d", lineNo, len(fields), len(header))
		}
		feature := Feature{ID: fields[0]}
		if descriptorCols > 1 {
			feature.Attrs = fields[1:descriptorCols]
		}
		row := make([]float64, len(t.Samples))
		for i, field := range fields[descriptorCols:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: count %q for sample %s: %w", lineNo, field, t.Samples[i], err)
			}
			if v < 0 {
				return nil, fmt.Errorf("line %d: negative count %v for sample %s", lineNo, v, t.Samples[i])
			}
			row[i] = v
		}
		t.Features = append(t.Features, feature)
		t.Counts = append(t.Counts, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// LibrarySizes returns the per-sample column sums.
func (t *Table) LibrarySizes() []float64 {
	sizes := make([]float64, len(t.Samples))
	for _, row := range t.Counts {
		for i, v := range row {
			sizes[i] += v
		}
	}
	return sizes
}

// CPM returns counts-per-million values with the table's shape. Samples with
// an empty library yield zero rather than NaN.
func (t *Table) CPM() [][]float64 {
	sizes := t.LibrarySizes()
	out := make([][]float64, len(t.Counts))
	for r, row := range t.Counts {
		cpm := make([]float64, len(row))
		for i, v := range row {
			if sizes[i] > 0 {
				cpm[i] = v / sizes[i] * 1e6
			}
		}
		out[r] = cpm
	}
	return out
}

// FilterLowExpression returns a new table keeping features whose CPM reaches
// minCPM in at least minSamples samples. Feature order is preserved.
func (t *Table) FilterLowExpression(minCPM float64, minSamples int) *Table {
	cpm := t.CPM()
	out := &Table{
		Descriptors: t.Descriptors,
		Samples:     t.Samples,
	}
	for r := range t.Counts {
		passing := 0
		for _, v := range cpm[r] {
			if v >= minCPM {
				passing++
			}
		}
		if passing >= minSamples {
			out.Features = append(out.Features, t.Features[r])
			out.Counts = append(out.Counts, t.Counts[r])
		}
	}
	return out
}

// Matrix converts the table into the engine's count matrix form.
func (t *Table) Matrix() stats.CountMatrix {
	features := make([]string, len(t.Features))
	for i, f := range t.Features {
		features[i] = f.ID
	}
	return stats.CountMatrix{Features: features, Samples: t.Samples, Counts: t.Counts}
}
