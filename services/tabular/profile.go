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

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// topValueCount limits the frequency listing for text columns.
const topValueCount = 3

// Profile renders the human-readable dataset summary embedded into CSV
// analysis prompts.
//
// # Description
//
// Sections appear in a fixed order: global shape, column name list, column
// types, missing counts, descriptive statistics for numeric columns, and
// the three most frequent values for each text column. Statistics are
// sample statistics (std divides by n-1) with linearly interpolated
// quartiles, matching the describe() output the frontend already renders.
//
// # Outputs
//
//   - string: Concatenated summary text block.
func (t *Table) Profile() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Dataset shape: (%d, %d)\n", t.Rows, len(t.Columns))
	fmt.Fprintf(&b, "Columns: %s\n", strings.Join(t.ColumnNames(), ", "))

	b.WriteString("\nColumn types:\n")
	for _, c := range t.Columns {
		fmt.Fprintf(&b, "%s: %s\n", c.Name, c.Kind)
	}

	b.WriteString("\nMissing values per column:\n")
	for _, c := range t.Columns {
		fmt.Fprintf(&b, "%s: %d\n", c.Name, c.Missing)
	}

	var hasNumeric bool
	for _, c := range t.Columns {
		if c.Kind == ColumnNumeric {
			hasNumeric = true
			break
		}
	}
	if hasNumeric {
		b.WriteString("\nStatistics for numeric columns:\n")
		for _, c := range t.Columns {
			if c.Kind != ColumnNumeric {
				continue
			}
			writeStats(&b, c)
		}
	}

	for _, c := range t.Columns {
		if c.Kind != ColumnText {
			continue
		}
		fmt.Fprintf(&b, "\nTop values for %s:\n", c.Name)
		for _, vc := range topValues(c, topValueCount) {
			fmt.Fprintf(&b, "%s: %d\n", vc.value, vc.count)
		}
	}

	return b.String()
}

// writeStats appends the describe-style block for one numeric column.
func writeStats(b *strings.Builder, c Column) {
	x := append([]float64(nil), c.Floats...)
	sort.Float64s(x)

	fmt.Fprintf(b, "%s:\n", c.Name)
	fmt.Fprintf(b, "  count: %d\n", len(x))
	fmt.Fprintf(b, "  mean: %s\n", formatStat(stat.Mean(x, nil)))
	fmt.Fprintf(b, "  std: %s\n", formatStat(stat.StdDev(x, nil)))
	fmt.Fprintf(b, "  min: %s\n", formatStat(x[0]))
	fmt.Fprintf(b, "  25%%: %s\n", formatStat(quantile(0.25, x)))
	fmt.Fprintf(b, "  50%%: %s\n", formatStat(quantile(0.5, x)))
	fmt.Fprintf(b, "  75%%: %s\n", formatStat(quantile(0.75, x)))
	fmt.Fprintf(b, "  max: %s\n", formatStat(x[len(x)-1]))
}

// quantile computes the linearly interpolated p-quantile of sorted data.
func quantile(p float64, sorted []float64) float64 {
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

type valueCount struct {
	value string
	count int
}

// topValues returns the n most frequent non-missing values of a text
// column, ties broken alphabetically for determinism.
func topValues(c Column, n int) []valueCount {
	freq := make(map[string]int)
	for _, v := range c.Values {
		if v == "" {
			continue
		}
		freq[v]++
	}

	counts := make([]valueCount, 0, len(freq))
	for v, k := range freq {
		counts = append(counts, valueCount{value: v, count: k})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].value < counts[j].value
	})

	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
