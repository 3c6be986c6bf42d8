package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/datajar/datajar/internal/dataset"
	"github.com/datajar/datajar/internal/log"
)

// Agent executes a natural-language analysis instruction against loaded
// data. Implementations are opaque to the adapter: they may return text,
// tabular data, and may write chart images into the chart directory as a
// side effect.
type Agent interface {
	Run(ctx context.Context, instruction string) (any, error)
}

// agentTimeout bounds one agent execution. Agent runs are never retried;
// a second run could double side effects such as chart files.
const agentTimeout = 2 * time.Minute

// maxAgentRows caps how many rows of the table are serialized into the
// agent prompt.
const maxAgentRows = 200

const agentPrompt = `You are a data analyst. Execute the instruction against the dataset
below and reply with the result only: a number, a short sentence, or a
small table in CSV form (header row first). No commentary.

Dataset (CSV%s):
%s

Instruction: %s`

// TableAgent is a model-backed Agent that answers instructions from an
// inline serialization of the table. Calls go straight through
// genkit.Generate without retry.
//
// TableAgent never produces chart files, so runs through it always
// resolve to text or table results. Plotting Agent implementations are
// expected to write PNG images into the adapter's chart store directory
// (store.Dir()); the adapter picks up any image created during the run.
type TableAgent struct {
	g      *genkit.Genkit
	model  string
	table  *dataset.Table
	logger log.Logger
}

// NewTableAgent creates an agent bound to one table.
func NewTableAgent(g *genkit.Genkit, model string, table *dataset.Table, logger log.Logger) *TableAgent {
	return &TableAgent{g: g, model: model, table: table, logger: logger}
}

// Run executes the instruction. A CSV-looking reply with multiple rows is
// parsed back into a table; anything else is returned as text.
func (a *TableAgent) Run(ctx context.Context, instruction string) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, agentTimeout)
	defer cancel()

	truncated := ""
	if a.table.NumRows() > maxAgentRows {
		truncated = fmt.Sprintf(", first %d of %d rows", maxAgentRows, a.table.NumRows())
	}

	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModelName(a.model),
		ai.WithPrompt(agentPrompt, truncated, serializeTable(a.table, maxAgentRows), instruction),
	)
	if err != nil {
		return nil, fmt.Errorf("agent run: %w", err)
	}

	reply := strings.TrimSpace(resp.Text())
	if tbl, ok := parseCSVReply(reply); ok {
		return tbl, nil
	}
	return reply, nil
}

// serializeTable renders up to limit rows as CSV for the prompt.
func serializeTable(t *dataset.Table, limit int) string {
	var sb strings.Builder
	for i, c := range t.Columns {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(csvEscape(c.Name))
	}
	sb.WriteByte('\n')

	for i, row := range t.Rows {
		if i == limit {
			break
		}
		for j, cell := range row {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(csvEscape(cell))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func csvEscape(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// parseCSVReply attempts to read a model reply as a small CSV table.
// A reply counts as tabular when it has a header plus at least one data
// row and a consistent comma count.
func parseCSVReply(reply string) (*dataset.Table, bool) {
	lines := strings.Split(reply, "\n")
	if len(lines) < 2 {
		return nil, false
	}
	commas := strings.Count(lines[0], ",")
	if commas == 0 {
		return nil, false
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" || strings.Count(line, ",") != commas {
			return nil, false
		}
	}

	tbl, err := dataset.ReadCSV(strings.NewReader(reply))
	if err != nil || tbl.NumRows() == 0 {
		return nil, false
	}
	return tbl, true
}
