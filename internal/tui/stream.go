package tui

import (
	"context"
	"fmt"
	"log/slog"

	tea "charm.land/bubbletea/v2"

	"github.com/datajar/datajar/internal/conversation"
)

// streamBufferSize is sized for a ~1.5s burst at a 60 FPS refresh rate.
// Prevents backpressure during UI render delays while keeping memory
// bounded.
const streamBufferSize = 100

// streamEvent is a discriminated union for all stream events. A single
// channel with a union type keeps the select logic simple and avoids
// multi-channel closure handling.
type streamEvent struct {
	// Exactly one of these fields is set per event
	text   string                  // Reply fragment (when non-empty)
	result conversation.TurnResult // Final turn outcome (when done is true)
	err    error                   // Error (when non-nil)
	done   bool                    // True when the turn completed
}

// Stream message types for Bubble Tea
type streamStartedMsg struct {
	eventCh <-chan streamEvent
	cancel  context.CancelFunc
}

type streamTextMsg struct {
	text string
}

type streamDoneMsg struct {
	result conversation.TurnResult
}

type streamErrorMsg struct {
	err error
}

// fetchDoneMsg reports the outcome of a remote table fetch.
type fetchDoneMsg struct {
	table string
	err   error
}

// startStream creates a command that runs one conversation turn.
//
// Goroutine lifecycle: the spawned goroutine exits when Respond returns
// or the context is canceled. Respond never returns an error; failures
// surface as readable replies in the TurnResult, so the done event always
// carries a displayable outcome. Channel closure signals completion.
func (t *TUI) startStream(query string) tea.Cmd {
	return func() tea.Msg {
		eventCh := make(chan streamEvent, streamBufferSize)

		// Timeout prevents an indefinite hang on a stuck provider.
		ctx, cancel := context.WithTimeout(t.ctx, streamTimeout)

		go func() {
			defer cancel()
			// Channel closure signals goroutine completion
			defer close(eventCh)

			// Panic recovery to prevent TUI lockup
			defer func() {
				if r := recover(); r != nil {
					slog.Error("turn panic recovered", "panic", r)
					select {
					case eventCh <- streamEvent{err: fmt.Errorf("turn panic: %v", r)}:
					default:
					}
				}
			}()

			result := t.app.Orchestrator.Respond(ctx, t.app.Session, query,
				func(ctx context.Context, fragment string) error {
					select {
					case eventCh <- streamEvent{text: fragment}:
						return nil
					case <-ctx.Done():
						return ctx.Err()
					}
				})

			if err := ctx.Err(); err != nil {
				select {
				case eventCh <- streamEvent{err: err}:
				default:
				}
				return
			}

			select {
			case eventCh <- streamEvent{done: true, result: result}:
			case <-ctx.Done():
			}
		}()

		return streamStartedMsg{
			eventCh: eventCh,
			cancel:  cancel,
		}
	}
}

// listenForStream creates a command that waits for the next stream event.
// Empty events are skipped via loop instead of recursion to prevent stack
// growth under pathological conditions.
func listenForStream(eventCh <-chan streamEvent) tea.Cmd {
	return func() tea.Msg {
		if eventCh == nil {
			return nil
		}

		for {
			event, ok := <-eventCh
			if !ok {
				return streamErrorMsg{err: fmt.Errorf("turn ended without completion signal")}
			}

			switch {
			case event.err != nil:
				return streamErrorMsg{err: event.err}
			case event.done:
				return streamDoneMsg{result: event.result}
			case event.text != "":
				return streamTextMsg{text: event.text}
			default:
				continue
			}
		}
	}
}
