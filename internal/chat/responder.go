// Package chat produces streaming conversational replies. When a dataset
// is active, the reply is grounded in its profile via a system prompt;
// transport failures surface as a single human-readable fragment so the
// conversation never dies mid-turn.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/datajar/datajar/internal/dataset"
	"github.com/datajar/datajar/internal/llm"
	"github.com/datajar/datajar/internal/log"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation history.
type Message struct {
	Role    Role
	Content string
}

// StreamFunc receives reply fragments in arrival order. Returning an
// error aborts the stream.
type StreamFunc func(ctx context.Context, fragment string) error

// errorFragment is the single fragment emitted when the provider call
// fails. Wording is user-facing.
const errorFragment = "Sorry, something went wrong while generating a reply. Please try again."

// streamTimeout bounds a full streaming completion.
const streamTimeout = 2 * time.Minute

const expertPrompt = `You are a marketing data expert helping the user understand their advertising data.

A dataset is loaded. Its profile:

%s

Understand the structure from the profile before answering:
- head_rows shows example records
- data_types gives each column's type
- shape gives row and column counts
- missing_data lists columns with missing values and their percentages
- categorical_data lists the most frequent values per categorical column

Ground every statement about the data in this profile. Be concise and concrete.`

const casualPrompt = `You are a friendly assistant for a marketing data tool.
No dataset is loaded yet. Chat naturally, and when relevant, suggest loading
an advertising dataset to analyze.`

// Responder generates streaming chat replies.
type Responder struct {
	caller *llm.Caller
	model  string
	logger log.Logger
}

// NewResponder creates a Responder using the given provider-qualified
// model name.
func NewResponder(caller *llm.Caller, model string, logger log.Logger) *Responder {
	return &Responder{caller: caller, model: model, logger: logger}
}

// Stream generates a reply to the conversation history, sending each
// fragment to fn as it arrives. The returned string is the accumulated
// reply text.
//
// On transport failure exactly one error fragment is sent through fn, the
// fragment is returned as the reply text, and the error is returned so the
// caller can mark the turn degraded. fn aborting the stream is treated the
// same way.
func (r *Responder) Stream(ctx context.Context, history []Message, profile *dataset.Profile, fn StreamFunc) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, streamTimeout)
	defer cancel()

	system, err := systemPrompt(profile)
	if err != nil {
		return r.failStream(ctx, fn, fmt.Errorf("building system prompt: %w", err))
	}

	resp, err := r.caller.Generate(ctx,
		ai.WithModelName(r.model),
		ai.WithSystem(system),
		ai.WithMessages(toModelMessages(history)...),
		ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			if fn == nil {
				return nil
			}
			return fn(ctx, chunk.Text())
		}),
	)
	if err != nil {
		return r.failStream(ctx, fn, err)
	}

	return resp.Text(), nil
}

// failStream delivers the single error fragment and reports the failure.
func (r *Responder) failStream(ctx context.Context, fn StreamFunc, cause error) (string, error) {
	r.logger.Warn("chat stream failed", "error", cause)
	if fn != nil {
		// Best effort; the fragment is also the returned reply text.
		_ = fn(ctx, errorFragment)
	}
	return errorFragment, fmt.Errorf("chat stream: %w", cause)
}

// systemPrompt picks the grounded or casual prompt depending on whether a
// profile is available.
func systemPrompt(profile *dataset.Profile) (string, error) {
	if profile == nil {
		return casualPrompt, nil
	}
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal profile: %w", err)
	}
	return fmt.Sprintf(expertPrompt, data), nil
}

// toModelMessages converts transcript history into Genkit messages.
func toModelMessages(history []Message) []*ai.Message {
	msgs := make([]*ai.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case RoleAssistant:
			msgs = append(msgs, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		default:
			msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		}
	}
	return msgs
}
