package planner

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/types"
)

type clarifyPayload struct {
	NeedsClarification bool   `json:"needs_clarification"`
	Question           string `json:"question"`
}

// NeedsClarification runs the one-shot ambiguity check. It errs on the side
// of proceeding: any failure in the check means no clarification is needed,
// because blocking a run on a broken check would be worse than researching a
// vague query.
func (p *Planner) NeedsClarification(ctx context.Context, query types.Query) (string, bool) {
	if p.client == nil {
		return "", false
	}

	raw, err := p.client.Complete(ctx, clarifyPrompt(query.Text))
	if err != nil {
		p.logger.Warn("clarification check failed, proceeding", zap.Error(err))
		return "", false
	}

	var payload clarifyPayload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		p.logger.Warn("clarification check returned malformed output, proceeding", zap.Error(err))
		return "", false
	}

	question := strings.TrimSpace(payload.Question)
	if !payload.NeedsClarification || question == "" {
		return "", false
	}
	return question, true
}

// Enhance compacts a task instruction into a search-friendly query. Any
// failure falls back to the raw instruction.
func (p *Planner) Enhance(ctx context.Context, agent types.AgentKind, instruction string) string {
	if p.client == nil {
		return instruction
	}

	raw, err := p.client.Complete(ctx, enhancePrompt(string(agent), instruction))
	if err != nil {
		p.logger.Debug("query enhancement failed, using raw instruction", zap.Error(err))
		return instruction
	}

	enhanced := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	if enhanced == "" || len(enhanced) > len(instruction)*2 {
		return instruction
	}
	return enhanced
}
