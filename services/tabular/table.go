// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tabular parses delimited text into typed tables and derives
// the summaries the CSV chat endpoint embeds into prompts and replies.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyDataset indicates content with no parseable columns or no data rows.
var ErrEmptyDataset = errors.New("CSV file is empty or contains no valid data")

// ColumnKind classifies a column as numeric or textual.
type ColumnKind string

const (
	ColumnNumeric ColumnKind = "numeric"
	ColumnText    ColumnKind = "text"
)

// Column is a single named column with an explicit type classification.
//
// # Description
//
// Values holds every cell as read, one entry per data row, with missing
// cells normalized to "". For numeric columns, Floats holds the parsed
// non-missing values in row order; for text columns it is nil. The explicit
// classification lets the histogram extractor check its preconditions
// without re-parsing the raw content.
//
// # Fields
//
//   - Name: Header cell for this column.
//   - Kind: ColumnNumeric or ColumnText.
//   - Values: Raw cells, "" where missing.
//   - Floats: Parsed non-missing values (numeric columns only).
//   - Missing: Count of missing cells.
type Column struct {
	Name    string
	Kind    ColumnKind
	Values  []string
	Floats  []float64
	Missing int
}

// Table is a parsed rectangular dataset. It lives for the scope of one
// request and is never persisted.
type Table struct {
	Columns []Column
	Rows    int
}

// missingCell reports whether a cell counts as missing. Blank cells and the
// usual null spellings are treated as missing, matching how the upstream
// dataframe tooling reads them.
func missingCell(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "nan", "na", "n/a":
		return true
	}
	return false
}

// Parse reads comma-delimited content into a Table.
//
// # Description
//
// The first row is the header. A UTF-8 byte-order mark is stripped. Ragged
// rows are tolerated: cells past the header width are dropped and absent
// trailing cells count as missing. A column is classified numeric when it
// has at least one non-missing cell and every non-missing cell parses as a
// float.
//
// # Inputs
//
//   - content: Raw delimited text, assumed UTF-8.
//
// # Outputs
//
//   - *Table: Parsed table with typed columns.
//   - error: ErrEmptyDataset for headerless or row-less content, or a
//     wrapped parse error for malformed CSV.
func Parse(content string) (*Table, error) {
	content = strings.TrimPrefix(content, "\ufeff")
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyDataset
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	header := records[0]
	cols := make([]Column, 0, len(header))
	for _, name := range header {
		cols = append(cols, Column{Name: strings.TrimSpace(name)})
	}
	if len(cols) == 0 {
		return nil, ErrEmptyDataset
	}

	rows := records[1:]
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}

	for _, row := range rows {
		for i := range cols {
			cell := ""
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			if missingCell(cell) {
				cell = ""
				cols[i].Missing++
			}
			cols[i].Values = append(cols[i].Values, cell)
		}
	}

	for i := range cols {
		classify(&cols[i])
	}

	return &Table{Columns: cols, Rows: len(rows)}, nil
}

// classify assigns the column kind and, for numeric columns, fills Floats.
func classify(col *Column) {
	floats := make([]float64, 0, len(col.Values))
	for _, v := range col.Values {
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			col.Kind = ColumnText
			return
		}
		floats = append(floats, f)
	}
	if len(floats) == 0 {
		// All cells missing; nothing to bin or describe.
		col.Kind = ColumnText
		return
	}
	col.Kind = ColumnNumeric
	col.Floats = floats
}

// ColumnNames returns the header names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ResolveColumn finds a column by case-insensitive name match and returns
// it alongside its actual header spelling.
func (t *Table) ResolveColumn(name string) (*Column, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for i := range t.Columns {
		if strings.ToLower(t.Columns[i].Name) == want {
			return &t.Columns[i], true
		}
	}
	return nil, false
}
