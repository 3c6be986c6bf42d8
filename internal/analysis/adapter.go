package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/datajar/datajar/internal/chart"
	"github.com/datajar/datajar/internal/dataset"
	"github.com/datajar/datajar/internal/log"
)

// ResultKind tags what an agent run produced.
type ResultKind string

const (
	ResultText  ResultKind = "text"
	ResultTable ResultKind = "table"
	ResultPlot  ResultKind = "plot"
	ResultError ResultKind = "error"
)

// Result is the classified outcome of one agent run. Exactly one variant
// is populated beyond Text, which always carries the displayable message.
type Result struct {
	Kind      ResultKind
	Text      string
	Table     *dataset.Table // set when Kind == ResultTable
	ChartPath string         // set when Kind == ResultPlot
}

// errorText is the user-facing message for failed agent runs.
const errorText = "The analysis could not be completed. Please try rephrasing your question."

// Adapter runs an agent and classifies the outcome against the chart
// store. It never returns an error: agent failures and panics become the
// Error variant so a broken analysis cannot take down a turn.
type Adapter struct {
	store  *chart.Store
	logger log.Logger
	now    func() time.Time
}

// NewAdapter creates an Adapter over the given chart store.
func NewAdapter(store *chart.Store, logger log.Logger) *Adapter {
	return &Adapter{store: store, logger: logger, now: time.Now}
}

// Run executes the agent with the instruction and classifies the result.
// A chart created at or after the pre-run timestamp wins over the agent's
// return value. Chart rotation runs after every call, including failures.
func (a *Adapter) Run(ctx context.Context, agent Agent, instruction string) (result Result) {
	stamp := a.now()

	defer func() {
		if _, err := a.store.Rotate(); err != nil {
			a.logger.Warn("chart rotation failed", "error", err)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("analysis agent panicked", "panic", r)
			result = Result{Kind: ResultError, Text: errorText}
		}
	}()

	out, err := agent.Run(ctx, instruction)
	if err != nil {
		a.logger.Warn("analysis agent failed", "error", err)
		return Result{Kind: ResultError, Text: errorText}
	}

	text := textOf(out)

	// A fresh chart on disk means the run was a plot, whatever the agent
	// returned as text.
	fresh, err := a.store.LatestSince(stamp)
	if err != nil {
		a.logger.Warn("chart lookup failed", "error", err)
	} else if fresh != nil {
		return Result{Kind: ResultPlot, Text: text, ChartPath: fresh.Path}
	}

	switch v := out.(type) {
	case *dataset.Table:
		return Result{Kind: ResultTable, Text: text, Table: v}
	default:
		return Result{Kind: ResultText, Text: text}
	}
}

// textOf renders an agent return value for display.
func textOf(out any) string {
	switch v := out.(type) {
	case nil:
		return ""
	case string:
		return v
	case *dataset.Table:
		return fmt.Sprintf("Returned a table with %d rows and %d columns.", v.NumRows(), v.NumCols())
	default:
		return fmt.Sprint(v)
	}
}
