// Package conversation owns the per-session state and the turn state
// machine that routes each user message to a streaming chat reply or the
// analysis pipeline.
package conversation

import (
	"github.com/google/uuid"

	"github.com/datajar/datajar/internal/chat"
	"github.com/datajar/datajar/internal/classify"
	"github.com/datajar/datajar/internal/dataset"
)

// Greeting is the fixed first transcript entry of every session.
const Greeting = "Hi! How can I help you analyze your ads today?"

// Message is one transcript entry. ChartPath, when set, is a non-owning
// reference into the chart store; rotation may delete the file later.
type Message struct {
	Role      chat.Role
	Content   string
	ChartPath string
}

// TurnDebug captures per-turn developer debug info: how the message was
// routed and what instruction the rewrite produced.
type TurnDebug struct {
	Intent      classify.Intent
	Instruction string
}

// Session is the explicit per-conversation state: the transcript, the
// dataset registry, and the last turn's debug info. A session is owned by
// a single goroutine; the registry and chart store handle their own
// synchronization.
type Session struct {
	ID       uuid.UUID
	Datasets *dataset.Registry

	transcript []Message
	lastDebug  TurnDebug
}

// NewSession creates a session over the given registry, seeded with the
// greeting.
func NewSession(registry *dataset.Registry) *Session {
	return &Session{
		ID:       uuid.New(),
		Datasets: registry,
		transcript: []Message{
			{Role: chat.RoleAssistant, Content: Greeting},
		},
	}
}

// Transcript returns a copy of the transcript.
func (s *Session) Transcript() []Message {
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// LastDebug returns the debug info of the most recent turn.
func (s *Session) LastDebug() TurnDebug {
	return s.lastDebug
}

// history converts the transcript into responder input.
func (s *Session) history() []chat.Message {
	msgs := make([]chat.Message, 0, len(s.transcript))
	for _, m := range s.transcript {
		msgs = append(msgs, chat.Message{Role: m.Role, Content: m.Content})
	}
	return msgs
}

func (s *Session) append(m Message) {
	s.transcript = append(s.transcript, m)
}
