package planner

import (
	"fmt"
)

const classifyPromptTemplate = `You are a legal query classifier for an Indian law research system.

Classify the query's complexity and assign tasks to agents.

COMPLEXITY
- "simple": direct lookups, definitions, single case or section queries
- "complex": comparisons, strategy, argument building, multi-step analysis

AGENTS
- retrieval: statutes, bare acts, case law, general research
- citation: citation networks, precedent treatment, overruling analysis
- strategy: legal arguments, defense/prosecution tactics
- explain: plain-language simplification
- generic: anything else

RULES
1. Be specific: include sections, timeframes, result counts in instructions.
2. No overlap between tasks.
3. Parallel by default: dependencies must be empty unless a task truly needs another task's output.

QUERY: %s

Respond with JSON only:
{
  "complexity": "simple" | "complex",
  "reasoning": "why this classification",
  "agent_tasks": [
    {"agent": "...", "task_id": "unique_id", "instruction": "...", "expected_output": "...", "dependencies": []}
  ],
  "synthesis_instruction": "how to combine task outputs",
  "synthesis_strategy": "equal_weight" | "case_law_primary" | "statute_primary" | "strategy_focused"
}`

const clarifyPromptTemplate = `Decide whether this legal research query is too ambiguous to research without asking the user one clarifying question. Most queries are researchable; only flag genuinely underspecified ones.

QUERY: %s

Respond with JSON only:
{"needs_clarification": true | false, "question": "one question, empty if not needed"}`

const enhancePromptTemplate = `Compact this research task instruction into a short keyword search query (under 15 words). Keep section numbers, act names, case names, and years. Drop formatting directions.

TASK (%s): %s

Respond with the search query only, no explanation.`

func classifyPrompt(query string) string {
	return fmt.Sprintf(classifyPromptTemplate, query)
}

func clarifyPrompt(query string) string {
	return fmt.Sprintf(clarifyPromptTemplate, query)
}

func enhancePrompt(agent, instruction string) string {
	return fmt.Sprintf(enhancePromptTemplate, agent, instruction)
}
