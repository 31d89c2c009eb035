package types

// AgentKind identifies the specialized unit a task is assigned to.
type AgentKind string

const (
	// AgentRetrieval performs general evidence retrieval (RAG + web).
	AgentRetrieval AgentKind = "retrieval"
	// AgentCitation analyzes citation networks and precedent treatment.
	AgentCitation AgentKind = "citation"
	// AgentStrategy formulates legal arguments and tactics.
	AgentStrategy AgentKind = "strategy"
	// AgentExplain produces plain-language explanations.
	AgentExplain AgentKind = "explain"
	// AgentGeneric is the fallback kind for unclassified work.
	AgentGeneric AgentKind = "generic"
)

// KnownAgentKinds is the closed set of agent kinds the executor can dispatch.
var KnownAgentKinds = map[AgentKind]bool{
	AgentRetrieval: true,
	AgentCitation:  true,
	AgentStrategy:  true,
	AgentExplain:   true,
	AgentGeneric:   true,
}

// TaskSpec describes one unit of work in a task graph. Immutable once
// created by the planner.
type TaskSpec struct {
	ID             string    `json:"task_id"`
	Agent          AgentKind `json:"agent"`
	Instruction    string    `json:"instruction"`
	ExpectedOutput string    `json:"expected_output,omitempty"`
	DependsOn      []string  `json:"dependencies,omitempty"`
}

// TaskStatus tracks a task through the executor's state machine.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskReady   TaskStatus = "ready"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
	TaskSkipped TaskStatus = "skipped"
)

// TaskResult is written exactly once per task by the executor.
type TaskResult struct {
	TaskID   string             `json:"task_id"`
	Status   TaskStatus         `json:"status"`
	Evidence []EvidenceFragment `json:"evidence,omitempty"`
	Err      error              `json:"-"`
}

// TaskGraph is a directed acyclic graph of task specs keyed by task ID.
//
// Graphs produced by Normalize are guaranteed acyclic with every dependency
// resolving inside the graph; the executor relies on both properties.
type TaskGraph struct {
	tasks map[string]TaskSpec
	order []string
}

// NewTaskGraph builds a graph from specs. Later specs with a duplicate ID
// overwrite earlier ones; insertion order is preserved otherwise.
func NewTaskGraph(specs ...TaskSpec) *TaskGraph {
	g := &TaskGraph{tasks: make(map[string]TaskSpec, len(specs))}
	for _, s := range specs {
		g.Add(s)
	}
	return g
}

// Add inserts or replaces a task spec.
func (g *TaskGraph) Add(spec TaskSpec) {
	if _, exists := g.tasks[spec.ID]; !exists {
		g.order = append(g.order, spec.ID)
	}
	g.tasks[spec.ID] = spec
}

// Get returns the spec for a task ID.
func (g *TaskGraph) Get(id string) (TaskSpec, bool) {
	spec, ok := g.tasks[id]
	return spec, ok
}

// Len returns the number of tasks in the graph.
func (g *TaskGraph) Len() int {
	return len(g.tasks)
}

// IDs returns task IDs in insertion order.
func (g *TaskGraph) IDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Tasks returns all specs in insertion order.
func (g *TaskGraph) Tasks() []TaskSpec {
	out := make([]TaskSpec, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.tasks[id])
	}
	return out
}

// Normalize drops dependency references that do not resolve to a task in the
// graph. A dangling reference is treated as "no dependency", not an error;
// planner output is untrusted and a missing node must not wedge the run.
func (g *TaskGraph) Normalize() {
	for id, spec := range g.tasks {
		kept := spec.DependsOn[:0]
		for _, dep := range spec.DependsOn {
			if _, ok := g.tasks[dep]; ok && dep != id {
				kept = append(kept, dep)
			}
		}
		spec.DependsOn = kept
		g.tasks[id] = spec
	}
}

// HasCycle reports whether the dependency relation contains a cycle.
// Call Normalize first so dangling references do not mask real edges.
func (g *TaskGraph) HasCycle() bool {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(g.tasks))

	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case visiting:
			return true
		case done:
			return false
		}
		state[id] = visiting
		for _, dep := range g.tasks[id].DependsOn {
			if _, ok := g.tasks[dep]; !ok {
				continue
			}
			if visit(dep) {
				return true
			}
		}
		state[id] = done
		return false
	}

	for id := range g.tasks {
		if visit(id) {
			return true
		}
	}
	return false
}
