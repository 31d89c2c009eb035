package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/types"
)

// CompletionClient is the external text-completion collaborator used for
// classification, clarification checks, and query enhancement.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Planner classifies queries into validated research plans.
type Planner struct {
	client CompletionClient
	logger *zap.Logger
}

// New creates a planner. client may be nil; classification then always
// degrades to the default plan.
func New(client CompletionClient, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		client: client,
		logger: logger.With(zap.String("component", "planner")),
	}
}

// classifyPayload mirrors the JSON shape the classifier is asked to emit.
// It is untrusted input and every field is revalidated.
type classifyPayload struct {
	Complexity           string        `json:"complexity"`
	Reasoning            string        `json:"reasoning"`
	AgentTasks           []payloadTask `json:"agent_tasks"`
	SynthesisInstruction string        `json:"synthesis_instruction"`
	SynthesisStrategy    string        `json:"synthesis_strategy"`
}

type payloadTask struct {
	Agent          string   `json:"agent"`
	TaskID         string   `json:"task_id"`
	Instruction    string   `json:"instruction"`
	ExpectedOutput string   `json:"expected_output"`
	Dependencies   []string `json:"dependencies"`
}

// agentAliases maps classifier agent names that predate the current kind set
// onto known kinds. Names outside this map and the known set are dropped.
var agentAliases = map[string]types.AgentKind{
	"research":  types.AgentRetrieval,
	"law":       types.AgentRetrieval,
	"case":      types.AgentCitation,
	"explainer": types.AgentExplain,
}

// Classify always returns a structurally valid decision: non-empty, acyclic
// task graph with resolving dependencies. Classification failures are
// recovered locally and never surface to the caller.
func (p *Planner) Classify(ctx context.Context, query types.Query) types.RouterDecision {
	if decision, ok := p.preRoute(query); ok {
		return decision
	}
	if p.client == nil {
		return p.defaultDecision(query, "no classifier configured")
	}

	raw, err := p.client.Complete(ctx, classifyPrompt(query.Text))
	if err != nil {
		return p.defaultDecision(query, "classifier call failed: "+err.Error())
	}

	var payload classifyPayload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return p.defaultDecision(query, "malformed classifier output: "+err.Error())
	}

	return p.validate(query, payload)
}

// validate applies the substitution rules to untrusted classifier output.
func (p *Planner) validate(query types.Query, payload classifyPayload) types.RouterDecision {
	complexity := types.Complexity(payload.Complexity)
	if complexity != types.ComplexitySimple && complexity != types.ComplexityComplex {
		complexity = types.ComplexitySimple
	}

	graph := types.NewTaskGraph()
	dropped := 0
	for i, task := range payload.AgentTasks {
		kind, ok := resolveAgentKind(task.Agent)
		if !ok {
			dropped++
			continue
		}

		id := strings.TrimSpace(task.TaskID)
		if id == "" {
			id = autoTaskID(i)
		}
		instruction := strings.TrimSpace(task.Instruction)
		if instruction == "" {
			instruction = query.Text
		}

		graph.Add(types.TaskSpec{
			ID:             id,
			Agent:          kind,
			Instruction:    instruction,
			ExpectedOutput: strings.TrimSpace(task.ExpectedOutput),
			DependsOn:      task.Dependencies,
		})
	}
	if dropped > 0 {
		p.logger.Warn("dropped tasks with unknown agent kinds", zap.Int("count", dropped))
	}

	if graph.Len() == 0 {
		if complexity == types.ComplexityComplex {
			graph = complexFallbackGraph(query)
			p.logger.Warn("complex plan empty after filtering, substituting fallback tasks")
		} else {
			return p.defaultDecision(query, "plan empty after filtering")
		}
	}

	graph.Normalize()
	if graph.HasCycle() {
		return p.defaultDecision(query, "plan contains a dependency cycle")
	}

	strategy := types.SynthesisStrategy(payload.SynthesisStrategy)
	switch strategy {
	case types.SynthesisEqualWeight, types.SynthesisCaseLawPrimary,
		types.SynthesisStatutePrimary, types.SynthesisStrategyFocus:
	default:
		strategy = types.SynthesisEqualWeight
	}

	return types.RouterDecision{
		Complexity:           complexity,
		Tasks:                graph,
		SynthesisInstruction: strings.TrimSpace(payload.SynthesisInstruction),
		SynthesisStrategy:    strategy,
		Reasoning:            strings.TrimSpace(payload.Reasoning),
	}
}

// defaultDecision is the universal degradation target: one generic retrieval
// task carrying the query text verbatim.
func (p *Planner) defaultDecision(query types.Query, reason string) types.RouterDecision {
	p.logger.Warn("substituting default plan", zap.String("reason", reason))

	graph := types.NewTaskGraph(types.TaskSpec{
		ID:             "fallback",
		Agent:          types.AgentGeneric,
		Instruction:    query.Text,
		ExpectedOutput: "general answer",
	})
	return types.RouterDecision{
		Complexity:        types.ComplexitySimple,
		Tasks:             graph,
		SynthesisStrategy: types.SynthesisEqualWeight,
		Reasoning:         reason,
	}
}

// complexFallbackGraph substitutes a complex query whose plan filtered to
// empty: independent statute and case retrieval over the raw query.
func complexFallbackGraph(query types.Query) *types.TaskGraph {
	return types.NewTaskGraph(
		types.TaskSpec{
			ID:             "fallback_statute",
			Agent:          types.AgentGeneric,
			Instruction:    "statutory provisions relevant to: " + query.Text,
			ExpectedOutput: "relevant sections and provisions",
		},
		types.TaskSpec{
			ID:             "fallback_case",
			Agent:          types.AgentGeneric,
			Instruction:    "case law relevant to: " + query.Text,
			ExpectedOutput: "relevant judgments",
		},
	)
}

func resolveAgentKind(name string) (types.AgentKind, bool) {
	kind := types.AgentKind(strings.ToLower(strings.TrimSpace(name)))
	if types.KnownAgentKinds[kind] {
		return kind, true
	}
	if alias, ok := agentAliases[string(kind)]; ok {
		return alias, true
	}
	return "", false
}

func autoTaskID(i int) string {
	return fmt.Sprintf("task_%d", i)
}

// extractJSON strips code fences and leading/trailing prose around the JSON
// object a completion returns.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}
