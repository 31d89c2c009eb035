package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/rerank"
	"github.com/BaSui01/lexflow/types"
)

type stubClassifier struct {
	decision types.RouterDecision
	calls    int
}

func (s *stubClassifier) Classify(ctx context.Context, query types.Query) types.RouterDecision {
	s.calls++
	return s.decision
}

type stubClarifier struct {
	question string
	needed   bool
}

func (s *stubClarifier) NeedsClarification(ctx context.Context, query types.Query) (string, bool) {
	return s.question, s.needed
}

// stubRunner dispatches on task ID. Unmapped tasks succeed with no evidence.
type stubRunner struct {
	mu    sync.Mutex
	fns   map[string]func(ctx context.Context) ([]types.EvidenceFragment, error)
	calls []string
}

func (s *stubRunner) Run(ctx context.Context, query types.Query, spec types.TaskSpec, deps []types.TaskResult) ([]types.EvidenceFragment, error) {
	s.mu.Lock()
	s.calls = append(s.calls, spec.ID)
	fn := s.fns[spec.ID]
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx)
}

type stubGenerator struct {
	answer  string
	err     error
	context string
	mode    types.GenerationMode
}

func (s *stubGenerator) Generate(ctx context.Context, evidenceContext string, query types.Query, decision types.RouterDecision, mode types.GenerationMode) (string, error) {
	s.context = evidenceContext
	s.mode = mode
	return s.answer, s.err
}

func evidenceFrag(id, body string) types.EvidenceFragment {
	return types.EvidenceFragment{
		ID:       id,
		Title:    "Fragment " + id,
		BodyText: body,
		Origin:   types.OriginLocalStore,
	}
}

func yields(frags ...types.EvidenceFragment) func(context.Context) ([]types.EvidenceFragment, error) {
	return func(context.Context) ([]types.EvidenceFragment, error) {
		return frags, nil
	}
}

func fails(err error) func(context.Context) ([]types.EvidenceFragment, error) {
	return func(context.Context) ([]types.EvidenceFragment, error) {
		return nil, err
	}
}

func decisionWith(complexity types.Complexity, specs ...types.TaskSpec) types.RouterDecision {
	return types.RouterDecision{
		Complexity: complexity,
		Tasks:      types.NewTaskGraph(specs...),
	}
}

func newTestExecutor(t *testing.T, cfg Config) *Executor {
	t.Helper()
	if cfg.Synthesizer == nil {
		cfg.Synthesizer = NewSynthesizer(rerank.New(nil, nil), 10, 0, nil, zap.NewNop())
	}
	if cfg.TaskTimeout == 0 {
		cfg.TaskTimeout = 5 * time.Second
	}
	return New(cfg)
}

func TestExecute_SimpleQuerySingleTask(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{fns: map[string]func(context.Context) ([]types.EvidenceFragment, error){
		"t1": yields(evidenceFrag("a", "Section 420 punishes cheating."), evidenceFrag("b", "Mens rea is required.")),
	}}
	exec := newTestExecutor(t, Config{
		Classifier: &stubClassifier{decision: decisionWith(types.ComplexitySimple,
			types.TaskSpec{ID: "t1", Agent: types.AgentRetrieval, Instruction: "section 420"})},
		Runner: runner,
	})

	run, err := exec.Execute(context.Background(), types.Query{Text: "What is Section 420?"})
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, run.State)
	assert.NotEmpty(t, run.RunID)
	assert.Len(t, run.Evidence, 2)
	assert.Contains(t, run.Context, "[1]")
	assert.Contains(t, run.Context, "[2]")
	assert.Equal(t, types.TaskDone, run.TaskResults["t1"].Status)
}

func TestExecute_ClarificationShortCircuits(t *testing.T) {
	t.Parallel()

	classifier := &stubClassifier{decision: decisionWith(types.ComplexitySimple,
		types.TaskSpec{ID: "t1", Agent: types.AgentGeneric, Instruction: "x"})}
	runner := &stubRunner{}
	exec := newTestExecutor(t, Config{
		Classifier:         classifier,
		Clarifier:          &stubClarifier{question: "Which jurisdiction?", needed: true},
		Runner:             runner,
		ClarificationCheck: true,
	})

	run, err := exec.Execute(context.Background(), types.Query{Text: "my case"})
	require.NoError(t, err)

	assert.Equal(t, StateClarificationNeeded, run.State)
	assert.Equal(t, "Which jurisdiction?", run.Clarification)
	assert.Zero(t, classifier.calls, "classifier must not run after short-circuit")
	assert.Empty(t, runner.calls)
}

func TestExecute_ClarifierDisabledIsIgnored(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, Config{
		Classifier: &stubClassifier{decision: decisionWith(types.ComplexitySimple,
			types.TaskSpec{ID: "t1", Agent: types.AgentGeneric, Instruction: "x"})},
		Clarifier: &stubClarifier{question: "?", needed: true},
		Runner: &stubRunner{fns: map[string]func(context.Context) ([]types.EvidenceFragment, error){
			"t1": yields(evidenceFrag("a", "body")),
		}},
		ClarificationCheck: false,
	})

	run, err := exec.Execute(context.Background(), types.Query{Text: "query"})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, run.State)
}

func TestExecute_FailedDependencySkipsDependents(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{fns: map[string]func(context.Context) ([]types.EvidenceFragment, error){
		"a": fails(errors.New("provider down")),
	}}
	exec := newTestExecutor(t, Config{
		Classifier: &stubClassifier{decision: decisionWith(types.ComplexityComplex,
			types.TaskSpec{ID: "a", Agent: types.AgentRetrieval, Instruction: "x"},
			types.TaskSpec{ID: "b", Agent: types.AgentStrategy, Instruction: "y", DependsOn: []string{"a"}},
			types.TaskSpec{ID: "c", Agent: types.AgentExplain, Instruction: "z", DependsOn: []string{"b"}},
		)},
		Runner: runner,
	})

	run, err := exec.Execute(context.Background(), types.Query{Text: "query"})
	require.NoError(t, err)

	assert.Equal(t, types.TaskFailed, run.TaskResults["a"].Status)
	assert.Equal(t, types.TaskSkipped, run.TaskResults["b"].Status)
	assert.Equal(t, types.TaskSkipped, run.TaskResults["c"].Status)
	assert.Equal(t, types.ErrTaskSkipped, types.GetErrorCode(run.TaskResults["c"].Err))
	assert.Equal(t, []string{"a"}, runner.calls, "skipped tasks must not execute")
	assert.Equal(t, StateNoEvidence, run.State)
}

func TestExecute_AllTasksFailedStillSynthesizes(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	exec := newTestExecutor(t, Config{
		Classifier: &stubClassifier{decision: decisionWith(types.ComplexityComplex,
			types.TaskSpec{ID: "a", Agent: types.AgentRetrieval, Instruction: "x"},
			types.TaskSpec{ID: "b", Agent: types.AgentCitation, Instruction: "y"},
		)},
		Runner: &stubRunner{fns: map[string]func(context.Context) ([]types.EvidenceFragment, error){
			"a": fails(boom),
			"b": fails(boom),
		}},
	})

	run, err := exec.Execute(context.Background(), types.Query{Text: "query"})
	require.NoError(t, err, "an all-failed graph is a result, not an error")

	assert.Equal(t, StateNoEvidence, run.State)
	assert.Empty(t, run.Evidence)
	assert.Empty(t, run.Context)
	assert.Len(t, run.TaskResults, 2)
}

func TestExecute_IndependentTasksRunConcurrently(t *testing.T) {
	t.Parallel()

	var running, peak int
	var mu sync.Mutex
	track := func(ctx context.Context) ([]types.EvidenceFragment, error) {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
		return nil, nil
	}

	exec := newTestExecutor(t, Config{
		Classifier: &stubClassifier{decision: decisionWith(types.ComplexityComplex,
			types.TaskSpec{ID: "a", Agent: types.AgentRetrieval, Instruction: "x"},
			types.TaskSpec{ID: "b", Agent: types.AgentCitation, Instruction: "y"},
		)},
		Runner: &stubRunner{fns: map[string]func(context.Context) ([]types.EvidenceFragment, error){
			"a": track,
			"b": track,
		}},
	})

	_, err := exec.Execute(context.Background(), types.Query{Text: "query"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, peak, "both ready tasks should overlap")
}

// depRecordingRunner captures the dependency results handed to each task.
type depRecordingRunner struct {
	mu   sync.Mutex
	deps map[string][]types.TaskResult
	fns  map[string]func(ctx context.Context) ([]types.EvidenceFragment, error)
}

func (r *depRecordingRunner) Run(ctx context.Context, query types.Query, spec types.TaskSpec, deps []types.TaskResult) ([]types.EvidenceFragment, error) {
	r.mu.Lock()
	r.deps[spec.ID] = deps
	fn := r.fns[spec.ID]
	r.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx)
}

func TestExecute_WideWaveReadsDependenciesSafely(t *testing.T) {
	t.Parallel()

	rootEvidence := evidenceFrag("root", "statute text")
	specs := []types.TaskSpec{
		{ID: "root", Agent: types.AgentRetrieval, Instruction: "x"},
	}
	fns := map[string]func(context.Context) ([]types.EvidenceFragment, error){
		"root": yields(rootEvidence),
	}
	var dependents []string
	for _, suffix := range []string{
		"a", "b", "c", "d", "e", "f", "g", "h", "i", "j",
		"k", "l", "m", "n", "o", "p", "q", "r", "s", "t",
	} {
		id := "dep_" + suffix
		dependents = append(dependents, id)
		specs = append(specs, types.TaskSpec{
			ID: id, Agent: types.AgentCitation, Instruction: "y", DependsOn: []string{"root"},
		})
		fns[id] = yields(evidenceFrag(id, "body "+id))
	}

	runner := &depRecordingRunner{deps: make(map[string][]types.TaskResult), fns: fns}
	exec := newTestExecutor(t, Config{
		Classifier: &stubClassifier{decision: decisionWith(types.ComplexityComplex, specs...)},
		Runner:     runner,
	})

	run, err := exec.Execute(context.Background(), types.Query{Text: "query"})
	require.NoError(t, err)

	assert.Equal(t, types.TaskDone, run.TaskResults["root"].Status)
	runner.mu.Lock()
	defer runner.mu.Unlock()
	for _, id := range dependents {
		assert.Equal(t, types.TaskDone, run.TaskResults[id].Status)
		deps := runner.deps[id]
		require.Len(t, deps, 1, "task %s must see its dependency result", id)
		assert.Equal(t, "root", deps[0].TaskID)
		assert.Equal(t, types.TaskDone, deps[0].Status)
		require.Len(t, deps[0].Evidence, 1)
		assert.Equal(t, rootEvidence.ID, deps[0].Evidence[0].ID)
	}
}

func TestExecute_DependentWaitsForDependency(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{fns: map[string]func(context.Context) ([]types.EvidenceFragment, error){
		"a": yields(evidenceFrag("a", "statute text")),
		"b": yields(evidenceFrag("b", "strategy memo")),
	}}
	exec := newTestExecutor(t, Config{
		Classifier: &stubClassifier{decision: decisionWith(types.ComplexityComplex,
			types.TaskSpec{ID: "a", Agent: types.AgentRetrieval, Instruction: "x"},
			types.TaskSpec{ID: "b", Agent: types.AgentStrategy, Instruction: "y", DependsOn: []string{"a"}},
		)},
		Runner: runner,
	})

	run, err := exec.Execute(context.Background(), types.Query{Text: "query"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, runner.calls)
	assert.Equal(t, types.TaskDone, run.TaskResults["a"].Status)
	assert.Equal(t, types.TaskDone, run.TaskResults["b"].Status)
	assert.Len(t, run.Evidence, 2)
}

func TestExecute_TaskTimeoutMarksFailed(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, Config{
		Classifier: &stubClassifier{decision: decisionWith(types.ComplexitySimple,
			types.TaskSpec{ID: "slow", Agent: types.AgentRetrieval, Instruction: "x"},
			types.TaskSpec{ID: "after", Agent: types.AgentExplain, Instruction: "y", DependsOn: []string{"slow"}},
		)},
		Runner: &stubRunner{fns: map[string]func(context.Context) ([]types.EvidenceFragment, error){
			"slow": func(ctx context.Context) ([]types.EvidenceFragment, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}},
		TaskTimeout: 30 * time.Millisecond,
	})

	run, err := exec.Execute(context.Background(), types.Query{Text: "query"})
	require.NoError(t, err)

	slow := run.TaskResults["slow"]
	assert.Equal(t, types.TaskFailed, slow.Status)
	assert.Equal(t, types.ErrTimeout, types.GetErrorCode(slow.Err))
	assert.True(t, types.IsRetryable(slow.Err))
	assert.Equal(t, types.TaskSkipped, run.TaskResults["after"].Status)
}

func TestExecute_DedupUnionAcrossTasks(t *testing.T) {
	t.Parallel()

	shared := evidenceFrag("shared", "identical body text")
	exec := newTestExecutor(t, Config{
		Classifier: &stubClassifier{decision: decisionWith(types.ComplexityComplex,
			types.TaskSpec{ID: "a", Agent: types.AgentRetrieval, Instruction: "x"},
			types.TaskSpec{ID: "b", Agent: types.AgentCitation, Instruction: "y"},
		)},
		Runner: &stubRunner{fns: map[string]func(context.Context) ([]types.EvidenceFragment, error){
			"a": yields(shared, evidenceFrag("only-a", "unique to a")),
			"b": yields(shared),
		}},
	})

	run, err := exec.Execute(context.Background(), types.Query{Text: "query"})
	require.NoError(t, err)
	assert.Len(t, run.Evidence, 2, "shared fragment must appear once")
}

func TestExecute_GeneratorModeFollowsComplexity(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{answer: "The section provides [1]."}
	exec := newTestExecutor(t, Config{
		Classifier: &stubClassifier{decision: decisionWith(types.ComplexityComplex,
			types.TaskSpec{ID: "t1", Agent: types.AgentRetrieval, Instruction: "x"})},
		Runner: &stubRunner{fns: map[string]func(context.Context) ([]types.EvidenceFragment, error){
			"t1": yields(evidenceFrag("a", "body")),
		}},
		Generator: gen,
	})

	run, err := exec.Execute(context.Background(), types.Query{Text: "query"})
	require.NoError(t, err)

	assert.Equal(t, "The section provides [1].", run.Answer)
	assert.Equal(t, types.ModeReasoning, gen.mode)
	assert.Contains(t, gen.context, "[1] Fragment a")
}

func TestExecute_GeneratorErrorSurfacesWithRun(t *testing.T) {
	t.Parallel()

	exec := newTestExecutor(t, Config{
		Classifier: &stubClassifier{decision: decisionWith(types.ComplexitySimple,
			types.TaskSpec{ID: "t1", Agent: types.AgentRetrieval, Instruction: "x"})},
		Runner: &stubRunner{fns: map[string]func(context.Context) ([]types.EvidenceFragment, error){
			"t1": yields(evidenceFrag("a", "body")),
		}},
		Generator: &stubGenerator{err: errors.New("model offline")},
	})

	run, err := exec.Execute(context.Background(), types.Query{Text: "query"})
	require.Error(t, err)
	require.NotNil(t, run, "evidence must survive a generation failure")
	assert.Len(t, run.Evidence, 1)
}

func TestExecute_NoEvidenceSkipsGeneration(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{answer: "should not run"}
	exec := newTestExecutor(t, Config{
		Classifier: &stubClassifier{decision: decisionWith(types.ComplexitySimple,
			types.TaskSpec{ID: "t1", Agent: types.AgentRetrieval, Instruction: "x"})},
		Runner:    &stubRunner{fns: map[string]func(context.Context) ([]types.EvidenceFragment, error){}},
		Generator: gen,
	})

	run, err := exec.Execute(context.Background(), types.Query{Text: "query"})
	require.NoError(t, err)
	assert.Equal(t, StateNoEvidence, run.State)
	assert.Empty(t, run.Answer)
}
