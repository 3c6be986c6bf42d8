// Package dataset holds the in-memory tabular data model: immutable tables,
// the named registry with a single active selection, and the profiler that
// summarizes the active table for prompt grounding.
package dataset

import (
	"strconv"
	"strings"
	"time"
)

// Kind classifies a column by the values it holds.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindDatetime    Kind = "datetime"
	KindCategorical Kind = "categorical"
	KindText        Kind = "text"
)

// Column describes one table column.
type Column struct {
	Name string
	Kind Kind
}

// Table is an immutable rectangular dataset. Every row has exactly
// len(Columns) cells; missing values are empty strings. Tables are never
// mutated after construction, so they are safe to share across goroutines.
type Table struct {
	Columns []Column
	Rows    [][]string
}

// NewTable builds a table from a header and rows, inferring column kinds.
// Short rows are padded with empty cells, long rows truncated.
func NewTable(header []string, rows [][]string) *Table {
	cols := make([]Column, len(header))
	for i, name := range header {
		cols[i] = Column{Name: strings.TrimSpace(name)}
	}

	fixed := make([][]string, len(rows))
	for r, row := range rows {
		cells := make([]string, len(header))
		copy(cells, row)
		fixed[r] = cells
	}

	t := &Table{Columns: cols, Rows: fixed}
	for i := range t.Columns {
		t.Columns[i].Kind = inferKind(t.columnValues(i))
	}
	return t
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.Columns) }

// ColumnIndex returns the index of the named column, or -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// columnValues returns all cell values of column i.
func (t *Table) columnValues(i int) []string {
	vals := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		vals = append(vals, row[i])
	}
	return vals
}

// kindThreshold is the share of non-empty values that must parse for a
// column to count as numeric or datetime.
const kindThreshold = 0.8

// maxCategoryLen bounds the cell length for categorical candidates; long
// free-form strings are text, not categories.
const maxCategoryLen = 64

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
}

// inferKind classifies a column from its values. Empty cells are ignored;
// an all-empty column is text.
func inferKind(values []string) Kind {
	var nonEmpty, numeric, datetime int
	distinct := make(map[string]struct{})
	short := true

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		nonEmpty++
		distinct[v] = struct{}{}
		if len(v) > maxCategoryLen {
			short = false
		}
		if isNumeric(v) {
			numeric++
		}
		if isDatetime(v) {
			datetime++
		}
	}

	if nonEmpty == 0 {
		return KindText
	}

	ratio := func(n int) float64 { return float64(n) / float64(nonEmpty) }
	if ratio(datetime) >= kindThreshold {
		return KindDatetime
	}
	if ratio(numeric) >= kindThreshold {
		return KindNumeric
	}
	if short && (len(distinct) <= 20 || float64(len(distinct)) <= 0.5*float64(nonEmpty)) {
		return KindCategorical
	}
	return KindText
}

func isNumeric(v string) bool {
	v = strings.ReplaceAll(v, ",", "")
	v = strings.TrimSuffix(v, "%")
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

func isDatetime(v string) bool {
	for _, layout := range datetimeLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}
