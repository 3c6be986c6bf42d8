package dataset

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildProfile_Shape(t *testing.T) {
	t.Parallel()

	tbl := NewTable(
		[]string{"campaign", "spend"},
		[][]string{
			{"summer", "100"},
			{"winter", "200"},
			{"summer", "150"},
		},
	)

	p := BuildProfile(tbl)
	if got, want := p.Shape, (Shape{Rows: 3, Columns: 2}); got != want {
		t.Errorf("Shape = %+v, want %+v", got, want)
	}
	if got := len(p.HeadRows); got != 3 {
		t.Errorf("len(HeadRows) = %d, want 3", got)
	}
}

func TestBuildProfile_HeadBounded(t *testing.T) {
	t.Parallel()

	rows := make([][]string, 12)
	for i := range rows {
		rows[i] = []string{"v"}
	}
	p := BuildProfile(NewTable([]string{"col"}, rows))
	if got := len(p.HeadRows); got != headRows {
		t.Errorf("len(HeadRows) = %d, want %d", got, headRows)
	}
}

func TestBuildProfile_ZeroRows(t *testing.T) {
	t.Parallel()

	p := BuildProfile(NewTable([]string{"a", "b"}, nil))

	if got, want := p.Shape, (Shape{Rows: 0, Columns: 2}); got != want {
		t.Errorf("Shape = %+v, want %+v", got, want)
	}
	if len(p.HeadRows) != 0 {
		t.Errorf("HeadRows = %v, want empty", p.HeadRows)
	}
	if len(p.MissingData) != 0 {
		t.Errorf("MissingData = %v, want empty", p.MissingData)
	}
	if len(p.CategoricalData) != 0 {
		t.Errorf("CategoricalData = %v, want empty", p.CategoricalData)
	}
}

func TestBuildProfile_MissingData(t *testing.T) {
	t.Parallel()

	tbl := NewTable(
		[]string{"name", "clicks"},
		[][]string{
			{"a", "10"},
			{"b", ""},
			{"c", ""},
		},
	)

	p := BuildProfile(tbl)

	// Only columns with missing cells appear.
	if _, ok := p.MissingData["name"]; ok {
		t.Error("MissingData contains column with no missing cells")
	}

	got, ok := p.MissingData["clicks"]
	if !ok {
		t.Fatal("MissingData missing column with missing cells")
	}
	want := MissingColumn{MissingCount: 2, MissingPercent: 66.67}
	if got != want {
		t.Errorf("MissingData[clicks] = %+v, want %+v", got, want)
	}
}

func TestBuildProfile_CategoricalTopValues(t *testing.T) {
	t.Parallel()

	// 7 distinct values; "a" dominates, then b..f by first appearance on ties.
	rows := [][]string{
		{"a"}, {"a"}, {"a"},
		{"b"}, {"c"}, {"d"}, {"e"}, {"f"}, {"g"},
	}
	p := BuildProfile(NewTable([]string{"label"}, rows))

	cat, ok := p.CategoricalData["label"]
	if !ok {
		t.Fatal("CategoricalData missing categorical column")
	}

	wantValues := []string{"a", "b", "c", "d", "e"}
	if diff := cmp.Diff(wantValues, cat.UniqueValues); diff != "" {
		t.Errorf("UniqueValues mismatch (-want +got):\n%s", diff)
	}

	// Frequencies normalize over all 9 non-missing cells.
	if got, want := cat.Distribution["a"], round4(3.0/9.0); got != want {
		t.Errorf("Distribution[a] = %v, want %v", got, want)
	}
	if got, want := cat.Distribution["b"], round4(1.0/9.0); got != want {
		t.Errorf("Distribution[b] = %v, want %v", got, want)
	}
}

func TestBuildProfile_DataTypes(t *testing.T) {
	t.Parallel()

	tbl := NewTable(
		[]string{"spend", "date", "status", "comment"},
		[][]string{
			{"10.5", "2024-01-02", "active", "first impression of this ad set was that the targeting window is far too broad for the budget we allocated"},
			{"20.0", "2024-01-03", "paused", "needs a complete rework of creative assets before the next flight window opens at the end of the month"},
			{"30.25", "2024-01-04", "active", "performance is fine but the frequency cap keeps being hit early in the day which wastes evening traffic"},
		},
	)

	p := BuildProfile(tbl)
	want := map[string]string{
		"spend":   "numeric",
		"date":    "datetime",
		"status":  "categorical",
		"comment": "text",
	}
	if diff := cmp.Diff(want, p.DataTypes); diff != "" {
		t.Errorf("DataTypes mismatch (-want +got):\n%s", diff)
	}
}

func TestRound(t *testing.T) {
	t.Parallel()

	if got := round2(66.66666); got != 66.67 {
		t.Errorf("round2(66.66666) = %v, want 66.67", got)
	}
	if got := round4(0.333333); got != 0.3333 {
		t.Errorf("round4(0.333333) = %v, want 0.3333", got)
	}
}
