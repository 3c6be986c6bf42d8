package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
	"go.uber.org/goleak"

	"github.com/datajar/datajar/internal/analysis"
	"github.com/datajar/datajar/internal/app"
	"github.com/datajar/datajar/internal/chat"
	"github.com/datajar/datajar/internal/classify"
	"github.com/datajar/datajar/internal/conversation"
	"github.com/datajar/datajar/internal/dataset"
	"github.com/datajar/datajar/internal/log"
)

// goleakOptions filters out persistent goroutines expected to exist.
func goleakOptions() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*http2clientConnReadLoop).run"),
	}
}

// stubClassifier always returns a fixed intent.
type stubClassifier struct{ intent classify.Intent }

func (s stubClassifier) Classify(context.Context, string, *dataset.Profile) classify.Intent {
	return s.intent
}

// stubResponder streams the reply word by word.
type stubResponder struct{ reply string }

func (s stubResponder) Stream(ctx context.Context, _ []chat.Message, _ *dataset.Profile, fn chat.StreamFunc) (string, error) {
	if fn != nil {
		for _, word := range strings.SplitAfter(s.reply, " ") {
			_ = fn(ctx, word)
		}
	}
	return s.reply, nil
}

type stubRewriter struct{}

func (stubRewriter) Rewrite(context.Context, string, *dataset.Profile) (string, error) {
	return "instruction", nil
}

type stubRunner struct{}

func (stubRunner) Run(context.Context, analysis.Agent, string) analysis.Result {
	return analysis.Result{Kind: analysis.ResultText, Text: "done"}
}

// newTestApp builds an app with a fresh session and no model wiring.
func newTestApp() *app.App {
	registry := dataset.NewRegistry(log.NewNop())
	return &app.App{
		Logger:  log.NewNop(),
		Session: conversation.NewSession(registry),
	}
}

// newTestTUI creates a TUI with an initialized textarea for testing.
func newTestTUI() *TUI {
	ta := textarea.New()
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	return &TUI{
		state:    StateInput,
		input:    ta,
		app:      newTestApp(),
		history:  make([]string, 0),
		styles:   DefaultStyles(),
		markdown: newMarkdownRenderer(80),
		ctx:      context.Background(),
	}
}

func TestNew_ErrorOnNilApp(t *testing.T) {
	if _, err := New(context.Background(), nil); err == nil {
		t.Error("expected error for nil app")
	}
}

func TestNew_ErrorOnNilContext(t *testing.T) {
	//lint:ignore SA1012 intentionally testing nil context handling
	if _, err := New(nil, newTestApp()); err == nil { //nolint:staticcheck
		t.Error("expected error for nil context")
	}
}

func TestNew_SeedsGreeting(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tui, err := New(context.Background(), newTestApp())
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	defer tui.ctxCancel()

	if len(tui.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(tui.messages))
	}
	if tui.messages[0].Role != roleAssistant || tui.messages[0].Text != conversation.Greeting {
		t.Errorf("first message = %+v, want assistant greeting", tui.messages[0])
	}
}

func TestTUI_HandleSlashCommands(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tests := []struct {
		name     string
		cmd      string
		wantExit bool
		wantMsgs int // messages added on top of the pre-seeded one
	}{
		{"help", "/help", false, 1},
		{"clear", "/clear", false, 0},
		{"exit", "/exit", true, 0},
		{"quit", "/quit", true, 0},
		{"datasets empty", "/datasets", false, 1},
		{"load without arg", "/load", false, 1},
		{"activate missing", "/activate nope", false, 1},
		{"unknown", "/unknown", false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tui := newTestTUI()
			tui.messages = []Message{{Role: roleUser, Text: "hello"}}

			model, cmd := tui.handleSlashCommand(tt.cmd)
			result := model.(*TUI)

			if tt.wantExit {
				if cmd == nil {
					t.Error("expected quit command")
				}
				return
			}
			if tt.cmd == "/clear" {
				if len(result.messages) != 0 {
					t.Error("/clear should clear messages")
				}
				return
			}
			if len(result.messages) != 1+tt.wantMsgs {
				t.Errorf("messages = %d, want %d", len(result.messages), 1+tt.wantMsgs)
			}
		})
	}
}

func TestTUI_SampleCommand(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tui := newTestTUI()

	model, _ := tui.handleSlashCommand("/sample")
	result := model.(*TUI)

	if result.app.Session.Datasets.Len() != 1 {
		t.Fatalf("registry len = %d, want 1", result.app.Session.Datasets.Len())
	}
	active, ok := result.app.Session.Datasets.ActiveName()
	if !ok || active != dataset.SampleName {
		t.Errorf("active = %q, want %q", active, dataset.SampleName)
	}

	// Loading again must surface the duplicate as an error message.
	model, _ = result.handleSlashCommand("/sample")
	result = model.(*TUI)
	last := result.messages[len(result.messages)-1]
	if last.Role != roleError {
		t.Errorf("duplicate sample load: last message role = %q, want error", last.Role)
	}
}

func TestTUI_DebugToggle(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tui := newTestTUI()

	model, _ := tui.handleSlashCommand("/debug")
	result := model.(*TUI)
	if !result.debug {
		t.Error("first /debug should enable debug display")
	}

	model, _ = result.handleSlashCommand("/debug")
	result = model.(*TUI)
	if result.debug {
		t.Error("second /debug should disable debug display")
	}
}

func TestTUI_HistoryNavigation(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tui := newTestTUI()
	tui.history = []string{"first", "second", "third"}
	tui.historyIdx = 3

	tests := []struct {
		delta    int
		expected string
	}{
		{-1, "third"},
		{-1, "second"},
		{-1, "first"},
		{-1, "first"}, // stays at first
		{1, "second"},
		{1, "third"},
		{1, ""}, // past end = empty
		{1, ""},
	}

	for i, tt := range tests {
		model, _ := tui.navigateHistory(tt.delta)
		tui = model.(*TUI)
		if tui.input.Value() != tt.expected {
			t.Errorf("step %d: got %q, want %q", i, tui.input.Value(), tt.expected)
		}
	}
}

func TestTUI_CtrlC_ClearsInput(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tui := newTestTUI()
	tui.input.SetValue("some input")

	model, _ := tui.handleCtrlC()
	result := model.(*TUI)

	if result.input.Value() != "" {
		t.Error("first Ctrl+C should clear input")
	}
}

func TestTUI_DoubleCtrlC_Exits(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tui := newTestTUI()
	tui.lastCtrlC = time.Now()

	if _, cmd := tui.handleCtrlC(); cmd == nil {
		t.Error("double Ctrl+C should return quit command")
	}
}

func TestTUI_CtrlC_CancelsStream(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tui := newTestTUI()
	tui.state = StateStreaming

	canceled := false
	tui.streamCancel = func() { canceled = true }

	model, _ := tui.handleCtrlC()
	result := model.(*TUI)

	if !canceled {
		t.Error("Ctrl+C during streaming should cancel")
	}
	if result.state != StateInput {
		t.Error("should return to StateInput")
	}
	if len(result.messages) != 1 || result.messages[0].Role != roleSystem {
		t.Error("should add canceled system message")
	}
}

func TestTUI_Update_KeyPress(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tui := newTestTUI()
	tui.input.SetValue("test")

	key := tea.Key{Code: 'c', Mod: tea.ModCtrl}
	model, _ := tui.Update(tea.KeyPressMsg(key))
	result := model.(*TUI)

	if result.input.Value() != "" {
		t.Error("Ctrl+C should clear input")
	}
}

func TestTUI_StreamMessages(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	t.Run("text accumulates", func(t *testing.T) {
		eventCh := make(chan streamEvent, 1)

		tui := newTestTUI()
		tui.state = StateStreaming
		tui.streamEventCh = eventCh

		model, _ := tui.Update(streamTextMsg{text: "Hello"})
		result := model.(*TUI)

		if result.output.String() != "Hello" {
			t.Errorf("output = %q, want %q", result.output.String(), "Hello")
		}
	})

	t.Run("done adds reply", func(t *testing.T) {
		tui := newTestTUI()
		tui.state = StateStreaming
		_, _ = tui.output.WriteString("Hello World")

		model, _ := tui.Update(streamDoneMsg{result: conversation.TurnResult{
			Reply: "Hello World",
			State: conversation.StateAnswered,
		}})
		result := model.(*TUI)

		if result.state != StateInput {
			t.Error("should return to StateInput after done")
		}
		if len(result.messages) != 1 || result.messages[0].Text != "Hello World" {
			t.Errorf("messages = %+v, want single assistant reply", result.messages)
		}
		if result.output.Len() != 0 {
			t.Error("output buffer should be reset")
		}
	})

	t.Run("done with chart adds path line", func(t *testing.T) {
		tui := newTestTUI()
		tui.state = StateStreaming

		model, _ := tui.Update(streamDoneMsg{result: conversation.TurnResult{
			Reply:     "Here is the chart.",
			ChartPath: "/tmp/charts/a.png",
			State:     conversation.StateAnswered,
		}})
		result := model.(*TUI)

		if len(result.messages) != 2 {
			t.Fatalf("messages = %d, want reply plus chart line", len(result.messages))
		}
		if !strings.Contains(result.messages[1].Text, "/tmp/charts/a.png") {
			t.Errorf("chart line = %q, want path included", result.messages[1].Text)
		}
	})

	t.Run("done with debug adds debug line", func(t *testing.T) {
		tui := newTestTUI()
		tui.state = StateStreaming
		tui.debug = true

		model, _ := tui.Update(streamDoneMsg{result: conversation.TurnResult{
			Reply: "done",
			State: conversation.StateAnswered,
			Debug: conversation.TurnDebug{
				Intent:      classify.IntentDataAnalysis,
				Instruction: "compute ROAS per campaign",
			},
		}})
		result := model.(*TUI)

		last := result.messages[len(result.messages)-1]
		if !strings.Contains(last.Text, "data_analysis") || !strings.Contains(last.Text, "compute ROAS per campaign") {
			t.Errorf("debug line = %q, want intent and instruction", last.Text)
		}
	})

	t.Run("cancellation becomes system message", func(t *testing.T) {
		tui := newTestTUI()
		tui.state = StateStreaming

		model, _ := tui.Update(streamErrorMsg{err: context.Canceled})
		result := model.(*TUI)

		if result.state != StateInput {
			t.Error("should return to StateInput after error")
		}
		if len(result.messages) != 1 || result.messages[0].Role != roleSystem {
			t.Error("cancellation should add a system message")
		}
	})
}

func TestStartStream_DeliversFragmentsAndResult(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tui := newTestTUI()
	tui.app.Orchestrator = conversation.NewOrchestrator(
		stubClassifier{intent: classify.IntentChat},
		stubResponder{reply: "Hello there"},
		stubRewriter{},
		stubRunner{},
		func(*dataset.Table) analysis.Agent { return nil },
		log.NewNop(),
	)

	msg := tui.startStream("hi")()
	started, ok := msg.(streamStartedMsg)
	if !ok {
		t.Fatalf("startStream returned %T, want streamStartedMsg", msg)
	}
	defer started.cancel()

	var got strings.Builder
	for {
		switch m := listenForStream(started.eventCh)().(type) {
		case streamTextMsg:
			got.WriteString(m.text)
		case streamDoneMsg:
			if m.result.Reply != "Hello there" {
				t.Errorf("result.Reply = %q, want %q", m.result.Reply, "Hello there")
			}
			if got.String() != "Hello there" {
				t.Errorf("fragments = %q, want %q", got.String(), "Hello there")
			}
			return
		case streamErrorMsg:
			t.Fatalf("unexpected stream error: %v", m.err)
		}
	}
}

func TestListenForStream_UnionChannel(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	t.Run("text event", func(t *testing.T) {
		eventCh := make(chan streamEvent, 1)
		eventCh <- streamEvent{text: "hello"}

		msg := listenForStream(eventCh)()
		if m, ok := msg.(streamTextMsg); !ok {
			t.Errorf("got %T, want streamTextMsg", msg)
		} else if m.text != "hello" {
			t.Errorf("text = %q, want %q", m.text, "hello")
		}
	})

	t.Run("done event", func(t *testing.T) {
		eventCh := make(chan streamEvent, 1)
		eventCh <- streamEvent{done: true, result: conversation.TurnResult{Reply: "done"}}

		msg := listenForStream(eventCh)()
		if m, ok := msg.(streamDoneMsg); !ok {
			t.Errorf("got %T, want streamDoneMsg", msg)
		} else if m.result.Reply != "done" {
			t.Errorf("reply = %q, want %q", m.result.Reply, "done")
		}
	})

	t.Run("channel closed", func(t *testing.T) {
		eventCh := make(chan streamEvent)
		close(eventCh)

		if msg := listenForStream(eventCh)(); msg == nil {
			t.Error("expected streamErrorMsg on channel close")
		} else if _, ok := msg.(streamErrorMsg); !ok {
			t.Errorf("got %T, want streamErrorMsg", msg)
		}
	})

	t.Run("nil channel returns nil", func(t *testing.T) {
		if msg := listenForStream(nil)(); msg != nil {
			t.Errorf("got %T, want nil", msg)
		}
	})
}

func TestTUI_AddMessage_BoundsEnforcement(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tui := newTestTUI()
	for i := 0; i < maxMessages+50; i++ {
		tui.addMessage(Message{Role: roleUser, Text: "test"})
	}

	if len(tui.messages) != maxMessages {
		t.Errorf("messages = %d, want exactly %d", len(tui.messages), maxMessages)
	}
}

func TestTUI_Cleanup(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tui := newTestTUI()
	tui.streamEventCh = make(chan streamEvent, 1)

	if cmd := tui.cleanup(); cmd == nil {
		t.Error("cleanup should return quit command")
	}
	if tui.streamEventCh != nil {
		t.Error("streamEventCh should be nil after cleanup")
	}
}

func TestMarkdownRenderer(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	t.Run("renders markdown", func(t *testing.T) {
		mr := newMarkdownRenderer(80)
		if mr == nil {
			t.Fatal("failed to create markdown renderer")
		}
		if mr.Render("**bold**") == "" {
			t.Error("Render should produce output")
		}
	})

	t.Run("nil renderer returns original", func(t *testing.T) {
		var mr *markdownRenderer
		if got := mr.Render("test"); got != "test" {
			t.Errorf("got %q, want original text", got)
		}
	})

	t.Run("UpdateWidth recreates on change only", func(t *testing.T) {
		mr := newMarkdownRenderer(80)
		if mr == nil {
			t.Fatal("failed to create markdown renderer")
		}
		if !mr.UpdateWidth(120) {
			t.Error("UpdateWidth should report change for new width")
		}
		if mr.UpdateWidth(120) {
			t.Error("UpdateWidth should be a no-op for same width")
		}
		if mr.UpdateWidth(0) {
			t.Error("UpdateWidth should reject non-positive width")
		}
	})
}
