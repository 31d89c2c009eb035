package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/internal/metrics"
	"github.com/BaSui01/lexflow/rerank"
	"github.com/BaSui01/lexflow/types"
)

// synthesisEncoding is the BPE used to budget the rendered context.
const synthesisEncoding = "cl100k_base"

// SynthesisResult is the fused evidence set plus its rendered context block.
// Citation indices in Context are 1-based positions into Evidence.
type SynthesisResult struct {
	Evidence []types.EvidenceFragment
	Context  string
}

// Synthesizer merges per-task evidence into one deduplicated, reranked,
// token-budgeted context for the generation step.
type Synthesizer struct {
	reranker    *rerank.Reranker
	topN        int
	tokenBudget int

	countTokens func(string) int

	collector *metrics.Collector
	logger    *zap.Logger
}

// NewSynthesizer builds a Synthesizer. topN caps the final evidence set;
// tokenBudget caps the rendered context (zero disables the budget).
func NewSynthesizer(reranker *rerank.Reranker, topN, tokenBudget int, collector *metrics.Collector, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topN <= 0 {
		topN = 10
	}
	s := &Synthesizer{
		reranker:    reranker,
		topN:        topN,
		tokenBudget: tokenBudget,
		collector:   collector,
		logger:      logger.With(zap.String("component", "synthesizer")),
	}
	if enc, err := tiktoken.GetEncoding(synthesisEncoding); err == nil {
		s.countTokens = func(text string) int {
			return len(enc.Encode(text, nil, nil))
		}
	} else {
		// Rough chars-per-token estimate keeps the budget meaningful when
		// the BPE vocabulary cannot be loaded.
		logger.Warn("token encoding unavailable, using estimate", zap.Error(err))
		s.countTokens = func(text string) int { return len(text) / 4 }
	}
	return s
}

// Synthesize merges the evidence of all done tasks, deduplicates it, reranks
// it against the original query, and renders the numbered context block.
// Failed and skipped tasks contribute nothing; an empty union yields an
// empty result, never an error.
func (s *Synthesizer) Synthesize(ctx context.Context, query types.Query, decision types.RouterDecision, results map[string]types.TaskResult) SynthesisResult {
	start := time.Now()

	var union []types.EvidenceFragment
	for _, id := range decision.Tasks.IDs() {
		res, ok := results[id]
		if !ok || res.Status != types.TaskDone {
			continue
		}
		union = append(union, res.Evidence...)
	}
	union = types.DedupFragments(union)
	if len(union) == 0 {
		s.collector.RecordSynthesis(time.Since(start), 0)
		return SynthesisResult{}
	}

	top := s.reranker.Rerank(ctx, query.Text, union, s.topN, 0)
	top = s.applyBudget(top)

	s.collector.RecordSynthesis(time.Since(start), len(top))
	s.logger.Debug("evidence synthesized",
		zap.Int("union", len(union)),
		zap.Int("kept", len(top)))

	return SynthesisResult{
		Evidence: top,
		Context:  renderContext(top),
	}
}

// applyBudget trims the tail of the ranked evidence until the rendered
// context fits the token budget. The top fragment is always kept.
func (s *Synthesizer) applyBudget(frags []types.EvidenceFragment) []types.EvidenceFragment {
	if s.tokenBudget <= 0 || len(frags) == 0 {
		return frags
	}
	total := 0
	for i := range frags {
		total += s.countTokens(renderFragment(i+1, &frags[i]))
		if total > s.tokenBudget && i > 0 {
			return frags[:i]
		}
	}
	return frags
}

// renderContext produces the numbered evidence block handed to generation.
// The index before each fragment is the citation number the answer may use.
func renderContext(frags []types.EvidenceFragment) string {
	var b strings.Builder
	for i := range frags {
		b.WriteString(renderFragment(i+1, &frags[i]))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderFragment(index int, f *types.EvidenceFragment) string {
	var b strings.Builder
	if f.URL != "" {
		fmt.Fprintf(&b, "[%d] %s (%s) [%s]:\n", index, f.Title, f.URL, f.Origin)
	} else {
		fmt.Fprintf(&b, "[%d] %s [%s]:\n", index, f.Title, f.Origin)
	}
	b.WriteString(f.BodyText)
	b.WriteString("\n\n")
	return b.String()
}
