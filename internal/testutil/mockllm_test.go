package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/go-cmp/cmp"
)

func userRequest(text string) *ai.ModelRequest {
	return &ai.ModelRequest{
		Messages: []*ai.Message{ai.NewUserMessage(ai.NewTextPart(text))},
	}
}

func TestMockLLM_PatternMatching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		patterns []struct{ pattern, response string }
		input    string
		want     string
	}{
		{
			name:  "fallback when no patterns",
			input: "hello",
			want:  "default response",
		},
		{
			name: "case insensitive match",
			patterns: []struct{ pattern, response string }{
				{"hello", "hi there"},
			},
			input: "HELLO world",
			want:  "hi there",
		},
		{
			name: "first match wins",
			patterns: []struct{ pattern, response string }{
				{"hello", "first"},
				{"hello", "second"},
			},
			input: "hello",
			want:  "first",
		},
		{
			name: "no match returns fallback",
			patterns: []struct{ pattern, response string }{
				{"hello", "hi"},
			},
			input: "goodbye",
			want:  "default response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewMockLLM("default response")
			for _, p := range tt.patterns {
				m.AddResponse(p.pattern, p.response)
			}

			resp, err := m.generate(context.Background(), userRequest(tt.input), nil)
			if err != nil {
				t.Fatalf("generate() unexpected error: %v", err)
			}
			if got := resp.Message.Text(); got != tt.want {
				t.Errorf("generate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMockLLM_FailureInjection(t *testing.T) {
	t.Parallel()
	m := NewMockLLM("ok")
	failure := errors.New("503 service unavailable")
	m.AddFailure("broken", failure)

	_, err := m.generate(context.Background(), userRequest("this is broken input"), nil)
	if !errors.Is(err, failure) {
		t.Errorf("generate() = %v, want injected failure", err)
	}

	calls := m.Calls()
	if len(calls) != 1 || !calls[0].Failed {
		t.Errorf("Calls() = %+v, want one failed call", calls)
	}
}

func TestMockLLM_CallRecording(t *testing.T) {
	t.Parallel()
	m := NewMockLLM("ok")
	m.AddResponse("special", "special response")

	for _, input := range []string{"hello", "special input"} {
		if _, err := m.generate(context.Background(), userRequest(input), nil); err != nil {
			t.Fatalf("generate() unexpected error: %v", err)
		}
	}

	want := []MockCall{
		{UserMessage: "hello", Response: "ok"},
		{UserMessage: "special input", Response: "special response"},
	}
	if diff := cmp.Diff(want, m.Calls()); diff != "" {
		t.Errorf("Calls() mismatch (-want +got):\n%s", diff)
	}

	m.Reset()
	if got := m.CallCount(); got != 0 {
		t.Errorf("CallCount() after Reset() = %d, want 0", got)
	}
}

func TestMockLLM_RecordsSystemMessage(t *testing.T) {
	t.Parallel()
	m := NewMockLLM("ok")

	req := &ai.ModelRequest{
		Messages: []*ai.Message{
			ai.NewSystemMessage(ai.NewTextPart("you are a classifier")),
			ai.NewUserMessage(ai.NewTextPart("hello")),
		},
	}
	if _, err := m.generate(context.Background(), req, nil); err != nil {
		t.Fatalf("generate() unexpected error: %v", err)
	}

	want := []MockCall{
		{UserMessage: "hello", SystemMessage: "you are a classifier", Response: "ok"},
	}
	if diff := cmp.Diff(want, m.Calls()); diff != "" {
		t.Errorf("Calls() mismatch (-want +got):\n%s", diff)
	}
}

func TestMockLLM_Streaming(t *testing.T) {
	t.Parallel()
	m := NewMockLLM("streamed")

	var chunks []string
	cb := func(_ context.Context, chunk *ai.ModelResponseChunk) error {
		for _, p := range chunk.Content {
			chunks = append(chunks, p.Text)
		}
		return nil
	}

	if _, err := m.generate(context.Background(), userRequest("test"), cb); err != nil {
		t.Fatalf("generate() unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"streamed"}, chunks); diff != "" {
		t.Errorf("streaming chunks mismatch (-want +got):\n%s", diff)
	}
}

func TestMockLLM_RegisterModel(t *testing.T) {
	t.Parallel()
	m := NewMockLLM("registered")
	g := genkit.Init(context.Background())

	model := m.RegisterModel(g)
	if model == nil {
		t.Fatal("RegisterModel() returned nil")
	}
	if found := genkit.LookupModel(g, MockModelName); found == nil {
		t.Fatal("LookupModel() returned nil after registration")
	}
}
