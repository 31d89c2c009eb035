package rerank

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/internal/metrics"
	"github.com/BaSui01/lexflow/types"
)

// NeutralScore is assigned to every fragment when the model is unavailable.
// Callers must not read it as a real negative signal.
const NeutralScore = 0.5

// ScoreModel scores (query, text) pairs. Scores are raw reals; the reranker
// normalizes them. A nil model or a scoring error triggers pass-through mode.
type ScoreModel interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Reranker applies a ScoreModel to evidence fragments.
type Reranker struct {
	model     ScoreModel
	collector *metrics.Collector
	logger    *zap.Logger
}

// New creates a reranker. model may be nil, which forces pass-through mode.
func New(model ScoreModel, logger *zap.Logger) *Reranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{
		model:  model,
		logger: logger.With(zap.String("component", "reranker")),
	}
}

// WithCollector attaches a metrics collector. A nil collector is valid.
func (r *Reranker) WithCollector(collector *metrics.Collector) *Reranker {
	r.collector = collector
	return r
}

// Rerank scores fragments against the query, sorts descending by sigmoid
// score, filters to threshold when threshold > 0, and truncates to topN.
//
// Model unavailability is recovered here and never surfaced: the fragments
// come back in input order with NeutralScore, truncated to topN, and the
// threshold is not applied because a neutral score carries no confidence.
func (r *Reranker) Rerank(ctx context.Context, query string, frags []types.EvidenceFragment, topN int, threshold float64) []types.EvidenceFragment {
	if len(frags) == 0 {
		return nil
	}

	if r.model == nil {
		return r.passThrough(frags, topN, "no model configured")
	}

	texts := make([]string, len(frags))
	for i := range frags {
		texts[i] = scoringText(&frags[i])
	}

	raw, err := r.model.Score(ctx, query, texts)
	if err != nil || len(raw) != len(frags) {
		if err == nil {
			err = fmt.Errorf("model returned %d scores for %d fragments", len(raw), len(frags))
		}
		return r.passThrough(frags, topN, err.Error())
	}

	out := make([]types.EvidenceFragment, len(frags))
	copy(out, frags)
	for i := range out {
		out[i].RerankScore = sigmoid(raw[i])
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RerankScore > out[j].RerankScore
	})

	if threshold > 0 {
		kept := out[:0]
		for _, f := range out {
			if f.RerankScore >= threshold {
				kept = append(kept, f)
			}
		}
		out = kept
	}

	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

// passThrough keeps input order and assigns the neutral score.
func (r *Reranker) passThrough(frags []types.EvidenceFragment, topN int, reason string) []types.EvidenceFragment {
	r.collector.RecordRerankFallback()
	r.logger.Warn("rerank model unavailable, neutral pass-through",
		zap.String("reason", reason))

	n := len(frags)
	if n > topN {
		n = topN
	}
	out := make([]types.EvidenceFragment, n)
	copy(out, frags[:n])
	for i := range out {
		out[i].RerankScore = NeutralScore
	}
	return out
}

// scoringText builds the text the model sees: title, heading, and the match
// span when present.
func scoringText(f *types.EvidenceFragment) string {
	var b strings.Builder
	if f.Title != "" {
		b.WriteString(f.Title)
	}
	if f.Heading != "" {
		if b.Len() > 0 {
			b.WriteString(" > ")
		}
		b.WriteString(f.Heading)
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}
	b.WriteString(f.ScoringText())
	return b.String()
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
