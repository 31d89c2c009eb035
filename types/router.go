package types

// Complexity classifies a query as answerable by a single task or requiring
// a multi-task research plan.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

// SynthesisStrategy hints how the generation step should weight the merged
// evidence. It controls style only, never the evidence set.
type SynthesisStrategy string

const (
	SynthesisEqualWeight    SynthesisStrategy = "equal_weight"
	SynthesisCaseLawPrimary SynthesisStrategy = "case_law_primary"
	SynthesisStatutePrimary SynthesisStrategy = "statute_primary"
	SynthesisStrategyFocus  SynthesisStrategy = "strategy_focused"
)

// GenerationMode selects the requested answer style from the external
// generation service.
type GenerationMode string

const (
	ModeDirect    GenerationMode = "direct"
	ModeReasoning GenerationMode = "reasoning"
)

// RouterDecision is the planner's validated output: a complexity class, a
// normalized acyclic task graph, and synthesis guidance. Produced once per
// query. The executor may assume the graph is non-empty and acyclic.
type RouterDecision struct {
	Complexity           Complexity        `json:"complexity"`
	Tasks                *TaskGraph        `json:"-"`
	SynthesisInstruction string            `json:"synthesis_instruction,omitempty"`
	SynthesisStrategy    SynthesisStrategy `json:"synthesis_strategy,omitempty"`
	Reasoning            string            `json:"reasoning,omitempty"`
}
