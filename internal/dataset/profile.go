package dataset

import (
	"math"
	"sort"
)

// topCategories bounds how many distinct values the profile reports per
// categorical column.
const topCategories = 5

// headRows is how many leading rows the profile carries.
const headRows = 5

// Profile summarizes a table for prompt grounding. The JSON field names are
// part of the system prompt contract consumed by the responder.
type Profile struct {
	HeadRows        []map[string]string          `json:"head_rows"`
	DataTypes       map[string]string            `json:"data_types"`
	Shape           Shape                        `json:"shape"`
	MissingData     map[string]MissingColumn     `json:"missing_data"`
	CategoricalData map[string]CategoricalColumn `json:"categorical_data"`
}

// Shape holds the table dimensions.
type Shape struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// MissingColumn reports missing cells for one column. Only columns with at
// least one missing cell appear in the profile.
type MissingColumn struct {
	MissingCount   int     `json:"missing_count"`
	MissingPercent float64 `json:"missing_percent"`
}

// CategoricalColumn reports the most frequent values of a categorical
// column with their normalized frequencies.
type CategoricalColumn struct {
	UniqueValues []string           `json:"unique_values"`
	Distribution map[string]float64 `json:"distribution"`
}

// BuildProfile computes a profile for t. It is total: any table, including
// one with zero rows, yields a valid profile.
func BuildProfile(t *Table) *Profile {
	p := &Profile{
		HeadRows:        []map[string]string{},
		DataTypes:       make(map[string]string, len(t.Columns)),
		Shape:           Shape{Rows: t.NumRows(), Columns: t.NumCols()},
		MissingData:     make(map[string]MissingColumn),
		CategoricalData: make(map[string]CategoricalColumn),
	}

	for i, row := range t.Rows {
		if i == headRows {
			break
		}
		record := make(map[string]string, len(t.Columns))
		for c, col := range t.Columns {
			record[col.Name] = row[c]
		}
		p.HeadRows = append(p.HeadRows, record)
	}

	for i, col := range t.Columns {
		p.DataTypes[col.Name] = string(col.Kind)

		missing := 0
		for _, row := range t.Rows {
			if row[i] == "" {
				missing++
			}
		}
		if missing > 0 {
			percent := float64(missing) / float64(t.NumRows()) * 100
			p.MissingData[col.Name] = MissingColumn{
				MissingCount:   missing,
				MissingPercent: round2(percent),
			}
		}

		if col.Kind == KindCategorical {
			p.CategoricalData[col.Name] = categoricalSummary(t, i)
		}
	}

	return p
}

// categoricalSummary returns the top distinct values of column i by
// frequency, ties broken by first appearance, with frequencies normalized
// over non-missing cells.
func categoricalSummary(t *Table, i int) CategoricalColumn {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	total := 0

	for r, row := range t.Rows {
		v := row[i]
		if v == "" {
			continue
		}
		if _, ok := counts[v]; !ok {
			firstSeen[v] = r
		}
		counts[v]++
		total++
	}

	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Slice(values, func(a, b int) bool {
		if counts[values[a]] != counts[values[b]] {
			return counts[values[a]] > counts[values[b]]
		}
		return firstSeen[values[a]] < firstSeen[values[b]]
	})
	if len(values) > topCategories {
		values = values[:topCategories]
	}

	dist := make(map[string]float64, len(values))
	for _, v := range values {
		dist[v] = round4(float64(counts[v]) / float64(total))
	}

	return CategoricalColumn{UniqueValues: values, Distribution: dist}
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }

func round4(x float64) float64 { return math.Round(x*10000) / 10000 }
