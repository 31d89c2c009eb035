package executor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/internal/metrics"
	"github.com/BaSui01/lexflow/types"
)

// Classifier turns a query into a validated routing decision. The planner
// satisfies this; Classify never fails, it degrades to a single-task plan.
type Classifier interface {
	Classify(ctx context.Context, query types.Query) types.RouterDecision
}

// Clarifier asks whether a query is too ambiguous to research.
type Clarifier interface {
	NeedsClarification(ctx context.Context, query types.Query) (string, bool)
}

// Generator produces the final answer from the rendered evidence context.
// The generation service is external to the core.
type Generator interface {
	Generate(ctx context.Context, evidenceContext string, query types.Query, decision types.RouterDecision, mode types.GenerationMode) (string, error)
}

// RunState is the terminal state of a research run.
type RunState string

const (
	// StateCompleted means the graph ran and evidence was synthesized.
	StateCompleted RunState = "completed"
	// StateClarificationNeeded means the run short-circuited before
	// scheduling; Clarification holds the question to surface.
	StateClarificationNeeded RunState = "clarification_needed"
	// StateNoEvidence means every task failed or was skipped and the
	// synthesized evidence set is empty.
	StateNoEvidence RunState = "no_evidence"
)

// RunResult is the outcome of one research run.
type RunResult struct {
	RunID         string
	State         RunState
	Clarification string

	Decision    types.RouterDecision
	TaskResults map[string]types.TaskResult

	Evidence []types.EvidenceFragment
	Context  string
	Answer   string
}

// Executor drives the full pipeline: optional clarification check, routing,
// graph scheduling, synthesis, generation.
type Executor struct {
	classifier  Classifier
	clarifier   Clarifier
	runner      TaskRunner
	synthesizer *Synthesizer
	generator   Generator

	taskTimeout        time.Duration
	clarificationCheck bool

	collector *metrics.Collector
	logger    *zap.Logger
}

// Config collects the executor's collaborators. Clarifier and Generator are
// optional; Classifier, Runner, and Synthesizer are required.
type Config struct {
	Classifier  Classifier
	Clarifier   Clarifier
	Runner      TaskRunner
	Synthesizer *Synthesizer
	Generator   Generator

	TaskTimeout        time.Duration
	ClarificationCheck bool

	Collector *metrics.Collector
	Logger    *zap.Logger
}

// New builds an Executor.
func New(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.TaskTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{
		classifier:         cfg.Classifier,
		clarifier:          cfg.Clarifier,
		runner:             cfg.Runner,
		synthesizer:        cfg.Synthesizer,
		generator:          cfg.Generator,
		taskTimeout:        timeout,
		clarificationCheck: cfg.ClarificationCheck,
		collector:          cfg.Collector,
		logger:             logger.With(zap.String("component", "executor")),
	}
}

// Execute runs one query end to end. It returns an error only for context
// cancellation or a generation failure; task-level failures are absorbed
// into the task results and the run still synthesizes.
func (e *Executor) Execute(ctx context.Context, query types.Query) (*RunResult, error) {
	runID := uuid.NewString()
	logger := e.logger.With(zap.String("run_id", runID))

	if e.clarificationCheck && e.clarifier != nil {
		if question, needed := e.clarifier.NeedsClarification(ctx, query); needed {
			logger.Info("run short-circuited for clarification")
			return &RunResult{
				RunID:         runID,
				State:         StateClarificationNeeded,
				Clarification: question,
			}, nil
		}
	}

	decision := e.classifier.Classify(ctx, query)
	logger.Info("query routed",
		zap.String("complexity", string(decision.Complexity)),
		zap.Int("tasks", decision.Tasks.Len()))

	results := e.runGraph(ctx, decision.Tasks, query, logger)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Synthesis runs unconditionally, even over an all-failed graph, so the
	// caller gets an explicit empty result instead of a missing one.
	synthesis := e.synthesizer.Synthesize(ctx, query, decision, results)

	run := &RunResult{
		RunID:       runID,
		State:       StateCompleted,
		Decision:    decision,
		TaskResults: results,
		Evidence:    synthesis.Evidence,
		Context:     synthesis.Context,
	}
	if len(synthesis.Evidence) == 0 {
		run.State = StateNoEvidence
		logger.Warn("run produced no evidence")
		return run, nil
	}

	if e.generator != nil {
		mode := types.ModeDirect
		if decision.Complexity == types.ComplexityComplex {
			mode = types.ModeReasoning
		}
		answer, err := e.generator.Generate(ctx, synthesis.Context, query, decision, mode)
		if err != nil {
			return run, types.NewError(types.ErrTaskFailed, "answer generation failed").WithCause(err)
		}
		run.Answer = answer
	}

	logger.Info("run complete", zap.Int("evidence", len(run.Evidence)))
	return run, nil
}

// runGraph schedules the graph in batches. Each pass first propagates skips
// from failed or skipped dependencies, then dispatches every ready task
// concurrently and waits for the batch.
func (e *Executor) runGraph(ctx context.Context, graph *types.TaskGraph, query types.Query, logger *zap.Logger) map[string]types.TaskResult {
	status := make(map[string]types.TaskStatus, graph.Len())
	for _, id := range graph.IDs() {
		status[id] = types.TaskPending
	}
	results := make(map[string]types.TaskResult, graph.Len())

	for {
		var ready []types.TaskSpec
		skipped := false
		for _, spec := range graph.Tasks() {
			if status[spec.ID] != types.TaskPending {
				continue
			}
			blocked, failedDep := false, false
			for _, dep := range spec.DependsOn {
				switch status[dep] {
				case types.TaskDone:
				case types.TaskFailed, types.TaskSkipped:
					failedDep = true
				default:
					blocked = true
				}
			}
			if failedDep {
				status[spec.ID] = types.TaskSkipped
				results[spec.ID] = types.TaskResult{
					TaskID: spec.ID,
					Status: types.TaskSkipped,
					Err:    types.NewError(types.ErrTaskSkipped, "dependency failed").WithTask(spec.ID),
				}
				e.collector.RecordTaskExecution(string(spec.Agent), string(types.TaskSkipped), 0)
				logger.Info("task skipped", zap.String("task_id", spec.ID))
				skipped = true
				continue
			}
			if !blocked {
				ready = append(ready, spec)
			}
		}

		if len(ready) == 0 {
			if skipped {
				// A fresh skip may cascade to further dependents.
				continue
			}
			return results
		}

		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for _, spec := range ready {
			spec := spec
			status[spec.ID] = types.TaskRunning
			// Dependency results are read here, before dispatch: every dep of
			// a ready task is already done, and sibling goroutines write the
			// results map concurrently.
			deps := e.depResults(spec, results)
			wg.Add(1)
			go func() {
				defer wg.Done()
				res := e.runTask(ctx, query, spec, deps)
				mu.Lock()
				results[spec.ID] = res
				mu.Unlock()
			}()
		}
		wg.Wait()
		for _, spec := range ready {
			status[spec.ID] = results[spec.ID].Status
		}
		if ctx.Err() != nil {
			return results
		}
	}
}

// runTask executes one task under the per-task timeout and maps the outcome
// to a terminal status. A deadline overrun is a failed task, never a failed
// run.
func (e *Executor) runTask(ctx context.Context, query types.Query, spec types.TaskSpec, deps []types.TaskResult) types.TaskResult {
	tctx, cancel := context.WithTimeout(ctx, e.taskTimeout)
	defer cancel()

	start := time.Now()
	evidence, err := e.runner.Run(tctx, query, spec, deps)
	duration := time.Since(start)

	result := types.TaskResult{TaskID: spec.ID}
	switch {
	case err == nil:
		result.Status = types.TaskDone
		result.Evidence = evidence
	case errors.Is(err, context.DeadlineExceeded) || tctx.Err() == context.DeadlineExceeded:
		result.Status = types.TaskFailed
		result.Err = types.NewError(types.ErrTimeout, "task deadline exceeded").
			WithCause(err).WithTask(spec.ID).WithRetryable(true)
	default:
		result.Status = types.TaskFailed
		result.Err = err
	}

	e.collector.RecordTaskExecution(string(spec.Agent), string(result.Status), duration)
	if result.Err != nil {
		e.logger.Warn("task failed",
			zap.String("task_id", spec.ID),
			zap.String("agent", string(spec.Agent)),
			zap.Duration("duration", duration),
			zap.Error(result.Err))
	} else {
		e.logger.Debug("task done",
			zap.String("task_id", spec.ID),
			zap.Duration("duration", duration),
			zap.Int("evidence", len(evidence)))
	}
	return result
}

// depResults collects completed dependency results in declaration order.
// Only done dependencies reach a running task, so every entry is present.
func (e *Executor) depResults(spec types.TaskSpec, results map[string]types.TaskResult) []types.TaskResult {
	if len(spec.DependsOn) == 0 {
		return nil
	}
	deps := make([]types.TaskResult, 0, len(spec.DependsOn))
	for _, dep := range spec.DependsOn {
		if res, ok := results[dep]; ok {
			deps = append(deps, res)
		}
	}
	return deps
}
