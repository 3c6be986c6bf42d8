package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/datajar/datajar/internal/dataset"
)

// Slash command constants.
const (
	cmdHelp     = "/help"
	cmdClear    = "/clear"
	cmdExit     = "/exit"
	cmdQuit     = "/quit"
	cmdLoad     = "/load"
	cmdSample   = "/sample"
	cmdDatasets = "/datasets"
	cmdActivate = "/activate"
	cmdRemove   = "/remove"
	cmdFetch    = "/fetch"
	cmdDebug    = "/debug"
)

// fetchTimeout bounds one remote table fetch.
const fetchTimeout = 30 * time.Second

const helpText = `Commands:
  /load <file.csv>   load a CSV file as a dataset
  /sample            load the bundled Facebook page sample
  /fetch <table>     fetch a hosted table into the registry
  /datasets          list loaded datasets (* marks active)
  /activate <name>   switch the active dataset
  /remove <name>     remove a dataset
  /debug             toggle intent and instruction display
  /clear             clear the screen
  /help, /exit, /quit
Shortcuts:
  Enter: send   Shift+Enter: newline   Ctrl+C: cancel/clear
  Ctrl+D: exit  Up/Down: history       PgUp/PgDn: scroll`

//nolint:gocyclo // One branch per command
func (t *TUI) handleSlashCommand(raw string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(raw)
	name, arg := fields[0], strings.Join(fields[1:], " ")

	t.input.Reset()
	var cmd tea.Cmd

	switch name {
	case cmdHelp:
		t.addMessage(Message{Role: roleSystem, Text: helpText})

	case cmdClear:
		t.messages = nil

	case cmdExit, cmdQuit:
		return t, t.cleanup()

	case cmdLoad:
		if arg == "" {
			t.addMessage(Message{Role: roleError, Text: "Usage: /load <file.csv>"})
			break
		}
		dsName, err := t.app.LoadCSV(arg)
		if err != nil {
			t.addMessage(Message{Role: roleError, Text: "Load failed: " + err.Error()})
			break
		}
		t.addMessage(Message{Role: roleSystem, Text: fmt.Sprintf("Loaded dataset %q.", dsName)})

	case cmdSample:
		tbl, err := dataset.LoadSample()
		if err != nil {
			t.addMessage(Message{Role: roleError, Text: "Sample load failed: " + err.Error()})
			break
		}
		if err := t.app.Session.Datasets.Add(dataset.SampleName, tbl); err != nil {
			t.addMessage(Message{Role: roleError, Text: "Sample load failed: " + err.Error()})
			break
		}
		t.addMessage(Message{Role: roleSystem, Text: fmt.Sprintf("Loaded dataset %q.", dataset.SampleName)})

	case cmdDatasets:
		t.addMessage(Message{Role: roleSystem, Text: t.renderDatasets()})

	case cmdActivate:
		if arg == "" {
			t.addMessage(Message{Role: roleError, Text: "Usage: /activate <name>"})
			break
		}
		if err := t.app.Session.Datasets.Activate(arg); err != nil {
			t.addMessage(Message{Role: roleError, Text: "Activate failed: " + err.Error()})
			break
		}
		t.addMessage(Message{Role: roleSystem, Text: fmt.Sprintf("Active dataset is now %q.", arg)})

	case cmdRemove:
		if arg == "" {
			t.addMessage(Message{Role: roleError, Text: "Usage: /remove <name>"})
			break
		}
		if err := t.app.Session.Datasets.Remove(arg); err != nil {
			t.addMessage(Message{Role: roleError, Text: "Remove failed: " + err.Error()})
			break
		}
		t.addMessage(Message{Role: roleSystem, Text: fmt.Sprintf("Removed dataset %q.", arg)})

	case cmdFetch:
		if arg == "" {
			t.addMessage(Message{Role: roleError, Text: "Usage: /fetch <table>"})
			break
		}
		t.addMessage(Message{Role: roleSystem, Text: fmt.Sprintf("Fetching table %q...", arg)})
		cmd = t.fetchTable(arg)

	case cmdDebug:
		t.debug = !t.debug
		if t.debug {
			t.addMessage(Message{Role: roleSystem, Text: "Debug display on."})
		} else {
			t.addMessage(Message{Role: roleSystem, Text: "Debug display off."})
		}

	default:
		t.addMessage(Message{Role: roleError, Text: "Unknown command: " + name})
	}

	t.rebuildViewportContent()
	t.viewport.GotoBottom()
	return t, cmd
}

// renderDatasets lists loaded datasets with the active one marked.
func (t *TUI) renderDatasets() string {
	names := t.app.Session.Datasets.List()
	if len(names) == 0 {
		return "No datasets loaded. Use /load <file.csv> or /sample."
	}

	active, _ := t.app.Session.Datasets.ActiveName()
	var b strings.Builder
	b.WriteString("Datasets:")
	for _, n := range names {
		marker := "  "
		if n == active {
			marker = "* "
		}
		b.WriteString("\n  " + marker + n)
	}
	return b.String()
}

// fetchTable runs a remote table fetch off the event loop.
func (t *TUI) fetchTable(table string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(t.ctx, fetchTimeout)
		defer cancel()
		return fetchDoneMsg{table: table, err: t.app.FetchTable(ctx, table)}
	}
}
