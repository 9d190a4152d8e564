// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tabular

import "fmt"

// HistogramBins is the fixed number of equal-width buckets.
const HistogramBins = 10

// Histogram holds the binned distribution of one numeric column.
//
// # Description
//
// BinEdges has HistogramBins+1 non-decreasing boundaries; Counts has
// HistogramBins entries where Counts[i] covers [BinEdges[i], BinEdges[i+1])
// and the last bin is closed on both ends. Column carries the resolved
// header spelling, not the spelling the caller asked for.
type Histogram struct {
	Column   string    `json:"column"`
	BinEdges []float64 `json:"bins"`
	Counts   []int     `json:"counts"`
}

// Histogram bins the non-missing values of the named column.
//
// # Description
//
// The column name is resolved case-insensitively. Failures are returned as
// plain errors so the caller can embed them directly into a chat reply; the
// "not found" message references the requested spelling while "not numeric"
// references the resolved header.
//
// When every value is identical (max == min) the range degenerates: all
// edges equal the constant value and every value is counted in the first
// bin. This fallback is deliberate and deterministic; see DESIGN.md.
//
// # Inputs
//
//   - column: Requested column name, matched case-insensitively.
//
// # Outputs
//
//   - *Histogram: Edges and counts on success.
//   - error: Column absent, non-numeric, or without values.
func (t *Table) Histogram(column string) (*Histogram, error) {
	col, ok := t.ResolveColumn(column)
	if !ok {
		return nil, fmt.Errorf("Column '%s' not found in CSV.", column)
	}
	if col.Kind != ColumnNumeric {
		return nil, fmt.Errorf("Column '%s' is not numeric.", col.Name)
	}
	values := col.Floats
	if len(values) == 0 {
		return nil, fmt.Errorf("Column '%s' has no values to bin.", col.Name)
	}

	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	edges := make([]float64, HistogramBins+1)
	counts := make([]int, HistogramBins)
	width := (max - min) / HistogramBins
	for i := range edges {
		edges[i] = min + float64(i)*width
	}
	edges[HistogramBins] = max

	if width == 0 {
		// Constant column: degenerate single bucket.
		counts[0] = len(values)
		return &Histogram{Column: col.Name, BinEdges: edges, Counts: counts}, nil
	}

	for _, v := range values {
		idx := int((v - min) / width)
		if idx >= HistogramBins {
			idx = HistogramBins - 1
		}
		counts[idx]++
	}

	return &Histogram{Column: col.Name, BinEdges: edges, Counts: counts}, nil
}
