package executor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/planner"
	"github.com/BaSui01/lexflow/types"
)

const answerPromptTemplate = `You are a legal research assistant. Answer the question using only the
numbered evidence below. Cite evidence by its number, like [1] or [2].
If the evidence does not cover the question, say so plainly.

%s
Evidence:
%s

Question: %s

%s`

// PromptGenerator renders the synthesized context into a prompt and asks a
// completion client for the final answer.
type PromptGenerator struct {
	client planner.CompletionClient
	logger *zap.Logger
}

// NewPromptGenerator builds a PromptGenerator over a completion client.
func NewPromptGenerator(client planner.CompletionClient, logger *zap.Logger) *PromptGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptGenerator{
		client: client,
		logger: logger.With(zap.String("component", "generator")),
	}
}

// Generate produces the final answer. The synthesis instruction and strategy
// shape style only; the evidence set is fixed before generation.
func (g *PromptGenerator) Generate(ctx context.Context, evidenceContext string, query types.Query, decision types.RouterDecision, mode types.GenerationMode) (string, error) {
	if g.client == nil {
		return "", types.NewError(types.ErrProviderUnavailable, "no completion client configured")
	}

	prompt := fmt.Sprintf(answerPromptTemplate,
		styleGuidance(decision),
		evidenceContext,
		query.Text,
		modeGuidance(mode))

	answer, err := g.client.Complete(ctx, prompt)
	if err != nil {
		return "", types.NewError(types.ErrProviderUnavailable, "completion failed").
			WithCause(err).WithRetryable(true)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", types.NewError(types.ErrProviderUnavailable, "completion returned empty answer")
	}
	g.logger.Debug("answer generated", zap.Int("length", len(answer)))
	return answer, nil
}

func styleGuidance(decision types.RouterDecision) string {
	var lines []string
	if decision.SynthesisInstruction != "" {
		lines = append(lines, "Guidance: "+decision.SynthesisInstruction)
	}
	switch decision.SynthesisStrategy {
	case types.SynthesisCaseLawPrimary:
		lines = append(lines, "Lead with judicial precedent, then statutory text.")
	case types.SynthesisStatutePrimary:
		lines = append(lines, "Lead with statutory provisions, then case law.")
	case types.SynthesisStrategyFocus:
		lines = append(lines, "Emphasize practical strategy and next steps.")
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func modeGuidance(mode types.GenerationMode) string {
	if mode == types.ModeReasoning {
		return "Reason step by step before stating the conclusion."
	}
	return "Answer directly and concisely."
}
