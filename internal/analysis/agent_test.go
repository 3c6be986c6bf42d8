package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/datajar/datajar/internal/dataset"
	"github.com/datajar/datajar/internal/log"
	"github.com/datajar/datajar/internal/testutil"
)

func adTable() *dataset.Table {
	return dataset.NewTable(
		[]string{"campaign", "spend"},
		[][]string{
			{"summer", "100"},
			{"winter", "200"},
		},
	)
}

func TestTableAgent_TextReply(t *testing.T) {
	t.Parallel()
	mock := testutil.NewMockLLM("300")
	g := testutil.NewTestGenkit(t, mock)
	agent := NewTableAgent(g, testutil.MockModelName, adTable(), log.NewNop())

	out, err := agent.Run(context.Background(), "Sum the spend column.")
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if out != "300" {
		t.Errorf("Run() = %v, want \"300\"", out)
	}
}

func TestTableAgent_CSVReplyBecomesTable(t *testing.T) {
	t.Parallel()
	mock := testutil.NewMockLLM("campaign,total\nsummer,100\nwinter,200")
	g := testutil.NewTestGenkit(t, mock)
	agent := NewTableAgent(g, testutil.MockModelName, adTable(), log.NewNop())

	out, err := agent.Run(context.Background(), "Spend per campaign.")
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	tbl, ok := out.(*dataset.Table)
	if !ok {
		t.Fatalf("Run() = %T, want *dataset.Table", out)
	}
	if tbl.NumRows() != 2 || tbl.NumCols() != 2 {
		t.Errorf("table shape = %dx%d, want 2x2", tbl.NumRows(), tbl.NumCols())
	}
}

func TestTableAgent_PromptCarriesData(t *testing.T) {
	t.Parallel()
	mock := testutil.NewMockLLM("ok")
	g := testutil.NewTestGenkit(t, mock)
	agent := NewTableAgent(g, testutil.MockModelName, adTable(), log.NewNop())

	if _, err := agent.Run(context.Background(), "Count rows."); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("CallCount = %d, want 1", len(calls))
	}
	for _, want := range []string{"campaign,spend", "summer,100", "Count rows."} {
		if !strings.Contains(calls[0].UserMessage, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestSerializeTable_LimitAndEscaping(t *testing.T) {
	t.Parallel()

	tbl := dataset.NewTable(
		[]string{"name", "note"},
		[][]string{
			{"a", `said "hi", left`},
			{"b", "plain"},
			{"c", "plain"},
		},
	)

	got := serializeTable(tbl, 2)
	want := "name,note\na,\"said \"\"hi\"\", left\"\nb,plain\n"
	if got != want {
		t.Errorf("serializeTable() = %q, want %q", got, want)
	}
}

func TestParseCSVReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply string
		want  bool
	}{
		{"valid two column", "a,b\n1,2", true},
		{"single line", "a,b", false},
		{"no commas", "just a sentence\nanother sentence", false},
		{"inconsistent commas", "a,b\n1,2,3", false},
		{"header only csv", "a,b\n", false},
		{"blank line inside", "a,b\n\n1,2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, ok := parseCSVReply(tt.reply)
			if ok != tt.want {
				t.Errorf("parseCSVReply(%q) ok = %v, want %v", tt.reply, ok, tt.want)
			}
		})
	}
}
