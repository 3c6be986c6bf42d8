// Package classify routes user messages by intent. A dedicated classifier
// model decides whether a message is small talk or a data analysis
// request; every reply is normalized into a closed set of intents so
// callers never branch on raw model output.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/datajar/datajar/internal/dataset"
	"github.com/datajar/datajar/internal/llm"
	"github.com/datajar/datajar/internal/log"
)

// Intent is the closed set of routing outcomes.
type Intent string

const (
	// IntentChat routes to the conversational responder.
	IntentChat Intent = "chat"

	// IntentDataAnalysis routes to the analysis pipeline.
	IntentDataAnalysis Intent = "data_analysis"

	// IntentUnknown means the classifier replied outside its vocabulary.
	IntentUnknown Intent = "unknown"

	// IntentError means the classification call itself failed.
	IntentError Intent = "error"
)

// classifyTimeout bounds the classification call. Classification is a
// single short completion; anything longer indicates a stuck provider.
const classifyTimeout = 15 * time.Second

// systemPrompt is completed with the dataset profile section so the
// model sees what "the loaded dataset" actually contains.
const systemPrompt = `You are an intent classifier for a marketing data assistant.
Decide whether the user's message is casual conversation or a request to
analyze the loaded advertising dataset (aggregations, filters, trends,
charts, metrics such as ROAS, CTR, CPC, spend or impressions).

%s

Only reply with: 'chat' or 'data_analysis'.`

// noDatasetMarker stands in for the profile when nothing is loaded.
const noDatasetMarker = "No dataset provided."

// Classifier labels user messages with one LLM call.
type Classifier struct {
	caller *llm.Caller
	model  string
	logger log.Logger
}

// New creates a Classifier using the given provider-qualified model name.
func New(caller *llm.Caller, model string, logger log.Logger) *Classifier {
	return &Classifier{caller: caller, model: model, logger: logger}
}

// Classify labels the message, grounding the decision in the active
// dataset's profile (or an explicit no-dataset marker). It never returns
// an error: a failed call yields IntentError and an off-vocabulary reply
// yields IntentUnknown. The routing policy for both lives with the caller.
func (c *Classifier) Classify(ctx context.Context, message string, profile *dataset.Profile) Intent {
	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	system, err := classifyPrompt(profile)
	if err != nil {
		c.logger.Warn("building classification prompt failed", "error", err)
		return IntentError
	}

	resp, err := c.caller.Generate(ctx,
		ai.WithModelName(c.model),
		ai.WithSystem(system),
		ai.WithPrompt("%s", message),
	)
	if err != nil {
		c.logger.Warn("intent classification failed", "error", err)
		return IntentError
	}

	intent := normalize(resp.Text())
	c.logger.Debug("classified message", "intent", intent)
	return intent
}

// classifyPrompt embeds the JSON profile, or the no-dataset marker, into
// the system prompt.
func classifyPrompt(profile *dataset.Profile) (string, error) {
	section := noDatasetMarker
	if profile != nil {
		data, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal profile: %w", err)
		}
		section = "The loaded dataset's profile:\n\n" + string(data)
	}
	return fmt.Sprintf(systemPrompt, section), nil
}

// normalize maps a raw model reply onto the closed intent set. Models
// decorate answers with quotes, punctuation and casing; after cleaning,
// only an exact label passes through. Replies that merely mention a label
// while hedging are IntentUnknown, never a route to the analysis pipeline.
func normalize(reply string) Intent {
	cleaned := strings.ToLower(strings.TrimSpace(reply))
	cleaned = strings.Trim(cleaned, `"'.!`)

	switch cleaned {
	case string(IntentChat):
		return IntentChat
	case string(IntentDataAnalysis):
		return IntentDataAnalysis
	default:
		return IntentUnknown
	}
}
