package conversation

import (
	"context"

	"github.com/datajar/datajar/internal/analysis"
	"github.com/datajar/datajar/internal/chat"
	"github.com/datajar/datajar/internal/classify"
	"github.com/datajar/datajar/internal/dataset"
	"github.com/datajar/datajar/internal/log"
)

// TurnState is the terminal state of a turn. Every turn ends in one of
// these; no failure propagates out of Respond.
type TurnState string

const (
	// StateAnswered means the turn completed normally.
	StateAnswered TurnState = "answered"

	// StateAnsweredWithError means the user got a readable reply but an
	// external call failed along the way.
	StateAnsweredWithError TurnState = "answered-with-error"
)

// rewriteFailedText is shown when the question could not be turned into an
// analysis instruction.
const rewriteFailedText = "I couldn't turn that into an analysis instruction. Please try rephrasing your question."

// TurnResult is the outcome of one Respond call.
type TurnResult struct {
	Reply     string
	ChartPath string
	State     TurnState
	Debug     TurnDebug
}

// Classifier labels a user message, grounded in the active dataset's
// profile.
type Classifier interface {
	Classify(ctx context.Context, message string, profile *dataset.Profile) classify.Intent
}

// Responder streams a conversational reply.
type Responder interface {
	Stream(ctx context.Context, history []chat.Message, profile *dataset.Profile, fn chat.StreamFunc) (string, error)
}

// Rewriter turns a question into an agent instruction grounded in the
// active dataset's profile.
type Rewriter interface {
	Rewrite(ctx context.Context, question string, profile *dataset.Profile) (string, error)
}

// AgentRunner executes an agent and classifies the outcome.
type AgentRunner interface {
	Run(ctx context.Context, agent analysis.Agent, instruction string) analysis.Result
}

// AgentFactory builds an analysis agent bound to the given table. The
// orchestrator creates a fresh agent per analysis turn so the agent always
// sees the currently active dataset.
type AgentFactory func(table *dataset.Table) analysis.Agent

// Orchestrator drives the turn state machine.
type Orchestrator struct {
	classifier Classifier
	responder  Responder
	rewriter   Rewriter
	runner     AgentRunner
	agentFor   AgentFactory
	logger     log.Logger
}

// NewOrchestrator wires the turn pipeline.
func NewOrchestrator(
	classifier Classifier,
	responder Responder,
	rewriter Rewriter,
	runner AgentRunner,
	agentFor AgentFactory,
	logger log.Logger,
) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		responder:  responder,
		rewriter:   rewriter,
		runner:     runner,
		agentFor:   agentFor,
		logger:     logger,
	}
}

// Respond processes one user message. The transcript always advances by
// exactly two entries (the user message and an assistant reply), whatever
// fails in between. Reply fragments stream through fn as they arrive.
//
// Routing: with no active dataset every message is chat. Otherwise the
// classifier decides; off-vocabulary and failed classifications fall back
// to chat so the user always gets an answer.
func (o *Orchestrator) Respond(ctx context.Context, s *Session, message string, fn chat.StreamFunc) TurnResult {
	s.append(Message{Role: chat.RoleUser, Content: message})

	table, hasData := s.Datasets.Active()
	profile := s.Datasets.ActiveProfile()

	intent := classify.IntentChat
	if hasData {
		intent = o.classifier.Classify(ctx, message, profile)
	}

	var result TurnResult
	switch intent {
	case classify.IntentDataAnalysis:
		result = o.analysisTurn(ctx, message, table, profile, fn)
	default:
		// chat, unknown and error all route to the responder.
		result = o.chatTurn(ctx, s, fn)
	}

	result.Debug.Intent = intent
	s.lastDebug = result.Debug
	s.append(Message{
		Role:      chat.RoleAssistant,
		Content:   result.Reply,
		ChartPath: result.ChartPath,
	})

	o.logger.Debug("turn completed",
		"intent", intent,
		"state", result.State,
		"chart", result.ChartPath != "",
	)
	return result
}

// chatTurn streams a conversational reply grounded in the active profile.
func (o *Orchestrator) chatTurn(ctx context.Context, s *Session, fn chat.StreamFunc) TurnResult {
	reply, err := o.responder.Stream(ctx, s.history(), s.Datasets.ActiveProfile(), fn)

	state := StateAnswered
	if err != nil {
		state = StateAnsweredWithError
	}
	return TurnResult{Reply: reply, State: state}
}

// analysisTurn rewrites the question and runs the agent against the
// active table.
func (o *Orchestrator) analysisTurn(ctx context.Context, message string, table *dataset.Table, profile *dataset.Profile, fn chat.StreamFunc) TurnResult {
	instruction, err := o.rewriter.Rewrite(ctx, message, profile)
	if err != nil {
		o.logger.Warn("instruction rewrite failed", "error", err)
		emit(ctx, fn, rewriteFailedText)
		return TurnResult{Reply: rewriteFailedText, State: StateAnsweredWithError}
	}

	res := o.runner.Run(ctx, o.agentFor(table), instruction)

	state := StateAnswered
	if res.Kind == analysis.ResultError {
		state = StateAnsweredWithError
	}

	emit(ctx, fn, res.Text)
	return TurnResult{
		Reply:     res.Text,
		ChartPath: res.ChartPath,
		State:     state,
		Debug:     TurnDebug{Instruction: instruction},
	}
}

// emit delivers a complete reply as a single fragment. Analysis results
// arrive whole, unlike streamed chat replies.
func emit(ctx context.Context, fn chat.StreamFunc, text string) {
	if fn != nil && text != "" {
		_ = fn(ctx, text)
	}
}
