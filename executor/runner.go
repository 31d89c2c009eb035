package executor

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/cache"
	"github.com/BaSui01/lexflow/cascade"
	"github.com/BaSui01/lexflow/internal/metrics"
	"github.com/BaSui01/lexflow/rerank"
	"github.com/BaSui01/lexflow/types"
)

// TaskRunner executes a single task. deps carries the results of the task's
// completed dependencies, in dependency order; tasks must be pure functions
// of their spec and those results.
type TaskRunner interface {
	Run(ctx context.Context, query types.Query, spec types.TaskSpec, deps []types.TaskResult) ([]types.EvidenceFragment, error)
}

// Enhancer optionally compacts a task instruction into a search query.
type Enhancer interface {
	Enhance(ctx context.Context, agent types.AgentKind, instruction string) string
}

// ResearchRunner is the standard TaskRunner: capability lookup, provider
// cascade, session cache insert, rerank against the task instruction.
type ResearchRunner struct {
	registry *cascade.Registry
	store    cache.Store
	reranker *rerank.Reranker
	enhancer Enhancer

	mode            cascade.Mode
	rerankTopN      int
	rerankThreshold float64

	collector *metrics.Collector
	logger    *zap.Logger
}

// ResearchRunnerConfig collects the runner's collaborators.
type ResearchRunnerConfig struct {
	Registry        *cascade.Registry
	Store           cache.Store
	Reranker        *rerank.Reranker
	Enhancer        Enhancer
	Mode            cascade.Mode
	RerankTopN      int
	RerankThreshold float64
	Collector       *metrics.Collector
	Logger          *zap.Logger
}

// NewResearchRunner wires the runner. Store and Enhancer may be nil.
func NewResearchRunner(cfg ResearchRunnerConfig) *ResearchRunner {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResearchRunner{
		registry:        cfg.Registry,
		store:           cfg.Store,
		reranker:        cfg.Reranker,
		enhancer:        cfg.Enhancer,
		mode:            cfg.Mode,
		rerankTopN:      cfg.RerankTopN,
		rerankThreshold: cfg.RerankThreshold,
		collector:       cfg.Collector,
		logger:          logger.With(zap.String("component", "task_runner")),
	}
}

// Run is strictly sequential within the task: retrieval, cache insert,
// rerank. Concurrency lives above (the executor) and below (the cascade's
// parallel-merge and hydration), never here.
func (r *ResearchRunner) Run(ctx context.Context, query types.Query, spec types.TaskSpec, deps []types.TaskResult) ([]types.EvidenceFragment, error) {
	instruction := spec.Instruction
	if r.enhancer != nil {
		instruction = r.enhancer.Enhance(ctx, spec.Agent, spec.Instruction)
	}

	taskQuery := query
	taskQuery.Text = instruction

	capability := capabilityFor(spec.Agent, instruction)
	providers := r.registry.Providers(capability)
	casc := cascade.New(providers, r.mode, r.logger).WithCollector(r.collector)

	result, err := casc.Run(ctx, taskQuery)
	if err != nil {
		return nil, types.NewError(types.ErrTaskFailed, "evidence retrieval failed").
			WithCause(err).WithTask(spec.ID)
	}

	r.cacheFragments(ctx, query.SessionID, result.Fragments)

	evidence := r.reranker.Rerank(ctx, instruction, result.Fragments, r.rerankTopN, r.rerankThreshold)

	r.logger.Debug("task retrieval complete",
		zap.String("task_id", spec.ID),
		zap.String("capability", string(capability)),
		zap.Int("retrieved", len(result.Fragments)),
		zap.Int("kept", len(evidence)))
	return evidence, nil
}

// cacheFragments inserts retrieved evidence into the session cache. A
// duplicate insert is a hit: some other task of this session already
// retrieved the same content.
func (r *ResearchRunner) cacheFragments(ctx context.Context, sessionID string, frags []types.EvidenceFragment) {
	if r.store == nil || sessionID == "" {
		return
	}
	for _, f := range frags {
		added, err := r.store.Put(ctx, sessionID, f)
		if err != nil {
			r.logger.Warn("evidence cache insert failed", zap.Error(err))
			continue
		}
		if added {
			r.collector.RecordCacheMiss("evidence")
		} else {
			r.collector.RecordCacheHit("evidence")
		}
	}
}

// capabilityFor picks the provider capability for a task. The citation kind
// always needs case law; for the rest the instruction text decides.
func capabilityFor(agent types.AgentKind, instruction string) cascade.Capability {
	if agent == types.AgentCitation {
		return cascade.CapabilityCaseSearch
	}

	lower := strings.ToLower(instruction)
	for _, kw := range []string{"judgment", "precedent", "case law", "ruling", "acquittal", "conviction"} {
		if strings.Contains(lower, kw) {
			return cascade.CapabilityCaseSearch
		}
	}
	for _, kw := range []string{"section", "statute", "act", "provision", "amendment", "bare act"} {
		if strings.Contains(lower, kw) {
			return cascade.CapabilityStatuteSearch
		}
	}
	return cascade.CapabilityGeneralSearch
}
