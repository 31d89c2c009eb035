package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/types"
)

// Passage is one indexed unit of a source document. Text is the scored child
// span; ParentText, when set, is the wider parent span returned as context.
type Passage struct {
	ID         string
	DocTitle   string
	Heading    string
	Text       string
	ParentText string
	Year       int
	Category   string
	Embedding  []float32
}

// MemoryProvider is an in-process hybrid store over a fixed passage set.
type MemoryProvider struct {
	embedder Embedder
	alpha    float64
	preK     int
	limit    int
	logger   *zap.Logger

	mu       sync.RWMutex
	passages []Passage
}

// NewMemoryProvider creates an empty in-memory store. preK bounds the vector
// pre-selection, limit the final result count.
func NewMemoryProvider(embedder Embedder, alpha float64, preK, limit int, logger *zap.Logger) *MemoryProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryProvider{
		embedder: embedder,
		alpha:    alpha,
		preK:     preK,
		limit:    limit,
		logger:   logger.With(zap.String("component", "memory_store")),
	}
}

func (p *MemoryProvider) Name() string { return "memory_store" }

// Add indexes passages. Embeddings must be precomputed at ingest.
func (p *MemoryProvider) Add(passages ...Passage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.passages = append(p.passages, passages...)
}

// Retrieve runs the hybrid search: filter, pre-select top-K by vector
// distance, z-score fuse, truncate to the final limit.
func (p *MemoryProvider) Retrieve(ctx context.Context, query types.Query) ([]types.EvidenceFragment, error) {
	qEmb, err := p.embedder.Embed(ctx, query.Text)
	if err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "embed query").WithCause(err)
	}

	qTerms := tokenize(query.Text)

	p.mu.RLock()
	defer p.mu.RUnlock()

	cands := make([]types.EvidenceFragment, 0, len(p.passages))
	for _, pass := range p.passages {
		if query.Filters.Year != 0 && pass.Year != query.Filters.Year {
			continue
		}
		if query.Filters.Category != "" && pass.Category != query.Filters.Category {
			continue
		}

		body := pass.ParentText
		if body == "" {
			body = pass.Text
		}
		cands = append(cands, types.EvidenceFragment{
			ID:             pass.ID,
			Title:          pass.DocTitle,
			Heading:        pass.Heading,
			BodyText:       body,
			MatchText:      pass.Text,
			Origin:         types.OriginLocalStore,
			LexicalScore:   termOverlap(qTerms, pass.Text),
			VectorDistance: cosineDistance(qEmb, pass.Embedding),
		})
	}
	if len(cands) == 0 {
		return nil, nil
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].VectorDistance < cands[j].VectorDistance
	})
	if len(cands) > p.preK {
		cands = cands[:p.preK]
	}

	fused := Fuse(cands, p.alpha)
	if len(fused) > p.limit {
		fused = fused[:p.limit]
	}

	p.logger.Debug("hybrid search complete",
		zap.String("query", types.TruncateText(query.Text, 80)),
		zap.Int("results", len(fused)))
	return fused, nil
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// termOverlap is the fraction of query terms present in the passage text, a
// cheap stand-in for the full-text rank the Postgres backend computes.
func termOverlap(qTerms []string, text string) float64 {
	if len(qTerms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, t := range qTerms {
		if strings.Contains(lower, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(qTerms))
}

func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// VectorLiteral renders an embedding in the pgvector text format.
func VectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", x)
	}
	b.WriteByte(']')
	return b.String()
}
