package planner

import (
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/types"
)

// routePattern short-circuits classification for a common query shape.
// Patterns are checked in order; the first substring match wins.
type routePattern struct {
	substr     string
	complexity types.Complexity
	agents     []types.AgentKind
	strategy   types.SynthesisStrategy
}

var routePatterns = []routePattern{
	{substr: "what is section", complexity: types.ComplexitySimple,
		agents: []types.AgentKind{types.AgentRetrieval}, strategy: types.SynthesisStatutePrimary},
	{substr: "define ", complexity: types.ComplexitySimple,
		agents: []types.AgentKind{types.AgentExplain}},
	{substr: "meaning of", complexity: types.ComplexitySimple,
		agents: []types.AgentKind{types.AgentExplain}},
	{substr: "what are the grounds", complexity: types.ComplexitySimple,
		agents: []types.AgentKind{types.AgentRetrieval}},
	{substr: "explain ", complexity: types.ComplexitySimple,
		agents: []types.AgentKind{types.AgentExplain}},

	{substr: "compare ", complexity: types.ComplexityComplex,
		agents: []types.AgentKind{types.AgentRetrieval, types.AgentCitation}},
	{substr: "analyze strategy", complexity: types.ComplexityComplex,
		agents:   []types.AgentKind{types.AgentStrategy, types.AgentRetrieval},
		strategy: types.SynthesisStrategyFocus},
	{substr: "citation", complexity: types.ComplexityComplex,
		agents: []types.AgentKind{types.AgentCitation}, strategy: types.SynthesisCaseLawPrimary},
	{substr: "how has", complexity: types.ComplexityComplex,
		agents: []types.AgentKind{types.AgentCitation}, strategy: types.SynthesisCaseLawPrimary},
	{substr: "arguments for", complexity: types.ComplexityComplex,
		agents: []types.AgentKind{types.AgentStrategy}, strategy: types.SynthesisStrategyFocus},
	{substr: "legal strategy", complexity: types.ComplexityComplex,
		agents: []types.AgentKind{types.AgentStrategy}, strategy: types.SynthesisStrategyFocus},
}

// preRoute matches the query against the pattern table and builds a decision
// without a classifier call. The second return is false on no match.
func (p *Planner) preRoute(query types.Query) (types.RouterDecision, bool) {
	lower := strings.ToLower(strings.TrimSpace(query.Text))

	for _, pat := range routePatterns {
		if !strings.Contains(lower, pat.substr) {
			continue
		}

		graph := types.NewTaskGraph()
		seen := make(map[types.AgentKind]bool, len(pat.agents))
		for _, kind := range pat.agents {
			if seen[kind] {
				continue
			}
			seen[kind] = true
			graph.Add(types.TaskSpec{
				ID:          "pre_" + string(kind),
				Agent:       kind,
				Instruction: query.Text,
			})
		}

		strategy := pat.strategy
		if strategy == "" {
			strategy = types.SynthesisEqualWeight
		}

		p.logger.Debug("pre-router matched",
			zap.String("pattern", pat.substr),
			zap.String("complexity", string(pat.complexity)))

		return types.RouterDecision{
			Complexity:        pat.complexity,
			Tasks:             graph,
			SynthesisStrategy: strategy,
			Reasoning:         "pre-routed on pattern: " + pat.substr,
		}, true
	}
	return types.RouterDecision{}, false
}
