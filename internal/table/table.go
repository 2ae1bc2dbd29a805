// Package table turns delimited text (or an xlsx sheet) into typed rows keyed
// by header name.
package table

import (
	"bytes"
	"fmt"
	"strings"
)

// Row is one record keyed by column name. Rows are read-only once parsed.
type Row struct {
	columns []string
	values  map[string]Value
}

// NewRow builds a row from a header and positional cells. Missing cells are
// null and extra cells are dropped. When a header repeats, the later cell wins
// if the row has one.
func NewRow(columns []string, cells []Value) Row {
	values := make(map[string]Value, len(columns))
	for i, col := range columns {
		if i < len(cells) {
			values[col] = cells[i]
			continue
		}
		if _, ok := values[col]; !ok {
			values[col] = Null()
		}
	}
	return Row{columns: columns, values: values}
}

// Get returns the value for col, or null when the row has no such column.
func (r Row) Get(col string) Value {
	if v, ok := r.values[col]; ok {
		return v
	}
	return Null()
}

// Has reports whether the row carries col.
func (r Row) Has(col string) bool {
	_, ok := r.values[col]
	return ok
}

// Columns returns the header the row was built from.
func (r Row) Columns() []string {
	return append([]string(nil), r.columns...)
}

// MarshalJSON writes the row as an object in header order. A repeated
// header appears once, at its first position.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range uniqueColumns(r.columns) {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := String(col).MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		v, err := r.Get(col).MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Issue is a problem found while tokenizing a single record.
type Issue struct {
	Row     int    `json:"row"` // 1-based data row, 0 when unknown
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Row > 0 {
		return fmt.Sprintf("Row %d: %s", i.Row, i.Message)
	}
	if i.Line > 0 {
		return fmt.Sprintf("Line %d: %s", i.Line, i.Message)
	}
	return i.Message
}

// Table is the parsed file: ordered header, rows in file order, and any
// record-level issues hit along the way.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
	Issues  []Issue
}

// HasColumn reports whether col is in the header.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Preview returns up to n leading rows.
func (t *Table) Preview(n int) []Row {
	if n <= 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

// DuplicateColumns lists header names that appear more than once, in
// first-repeat order. Duplicates are reported, never renamed.
func (t *Table) DuplicateColumns() []string {
	seen := make(map[string]bool, len(t.Columns))
	reported := make(map[string]bool)
	var dups []string
	for _, col := range t.Columns {
		if seen[col] && !reported[col] {
			dups = append(dups, col)
			reported[col] = true
		}
		seen[col] = true
	}
	return dups
}

// EmptyColumns lists columns that are empty in every row.
func (t *Table) EmptyColumns() []string {
	return t.columnsWhere(func(empty, total int) bool { return empty == total })
}

// SparseColumns lists columns that are more than 90% empty.
func (t *Table) SparseColumns() []string {
	return t.columnsWhere(func(empty, total int) bool {
		return float64(empty)/float64(total) > 0.9
	})
}

func (t *Table) columnsWhere(match func(empty, total int) bool) []string {
	if len(t.Rows) == 0 {
		return nil
	}
	var out []string
	for _, col := range uniqueColumns(t.Columns) {
		empty := 0
		for _, row := range t.Rows {
			if row.Get(col).IsEmpty() {
				empty++
			}
		}
		if match(empty, len(t.Rows)) {
			out = append(out, col)
		}
	}
	return out
}

// Warnings summarises data-quality problems: record issues, duplicate
// headers, and empty or sparse columns.
func (t *Table) Warnings() []string {
	var warnings []string
	for _, issue := range t.Issues {
		warnings = append(warnings, issue.String())
	}
	if dups := t.DuplicateColumns(); len(dups) > 0 {
		warnings = append(warnings, "Duplicate column names found: "+strings.Join(dups, ", "))
	}
	if empty := t.EmptyColumns(); len(empty) > 0 {
		warnings = append(warnings, "Empty columns detected: "+strings.Join(empty, ", "))
	}
	if sparse := t.SparseColumns(); len(sparse) > 0 {
		warnings = append(warnings, "Sparse columns (>90% empty): "+strings.Join(sparse, ", "))
	}
	return warnings
}

func uniqueColumns(columns []string) []string {
	seen := make(map[string]bool, len(columns))
	out := make([]string, 0, len(columns))
	for _, col := range columns {
		if seen[col] {
			continue
		}
		seen[col] = true
		out = append(out, col)
	}
	return out
}
