// Package analysis turns user questions into agent instructions, runs the
// analysis agent, and classifies what came back: plain text, a table, a
// fresh chart, or a failure.
package analysis

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

// rewriteTimeout bounds the instruction rewrite call.
const rewriteTimeout = 30 * time.Second

// rewriteSystemPrompt is completed with the dataset profile, then followed
// by two worked examples. The agent downstream works best with terse,
// imperative instructions naming exact computations, so the rewrite strips
// conversational framing.
const rewriteSystemPrompt = `You rewrite questions about an advertising dataset into terse,
imperative analysis instructions for a data agent. Name the exact
computation, grouping and ordering, using the dataset's real column
names. Do not answer the question yourself.

The dataset's profile:

%s

Example 1:
Question: which campaign gave us the best return on ad spend last month?
Instruction: Filter rows to last month, compute ROAS as purchase_value divided by spend per campaign, sort descending by ROAS, return the top campaign with its ROAS.

Example 2:
Question: how has our click-through rate been trending week over week?
Instruction: Group rows by week of the date column, compute CTR as clicks divided by impressions per week, return the weekly CTR series in chronological order.

Reply with the instruction only.`

// rewriteNoProfile stands in for the profile when none is available.
const rewriteNoProfile = "No dataset provided."

// Generator rewrites questions into agent instructions.
type Generator struct {
	caller *llm.Caller
	model  string
	logger log.Logger
}

// NewGenerator creates a Generator using the given provider-qualified
// model name.
func NewGenerator(caller *llm.Caller, model string, logger log.Logger) *Generator {
	return &Generator{caller: caller, model: model, logger: logger}
}

// Rewrite converts a user question into an analysis instruction grounded
// in the dataset's profile, so the instruction can name real columns.
// Failure is reported through the error return, never encoded in the
// instruction text, so callers can always hand a successful result
// straight to the agent.
func (g *Generator) Rewrite(ctx context.Context, question string, profile *dataset.Profile) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, rewriteTimeout)
	defer cancel()

	system, err := rewritePrompt(profile)
	if err != nil {
		return "", err
	}

	resp, err := g.caller.Generate(ctx,
		ai.WithModelName(g.model),
		ai.WithSystem(system),
		ai.WithPrompt("Question: %s", question),
	)
	if err != nil {
		return "", fmt.Errorf("rewriting question: %w", err)
	}

	instruction := strings.TrimSpace(resp.Text())
	instruction = strings.TrimPrefix(instruction, "Instruction:")
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return "", fmt.Errorf("rewriting question: model returned empty instruction")
	}

	g.logger.Debug("rewrote question", "instruction", instruction)
	return instruction, nil
}

// rewritePrompt embeds the JSON profile into the few-shot system prompt.
func rewritePrompt(profile *dataset.Profile) (string, error) {
	section := rewriteNoProfile
	if profile != nil {
		data, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal profile: %w", err)
		}
		section = string(data)
	}
	return fmt.Sprintf(rewriteSystemPrompt, section), nil
}
