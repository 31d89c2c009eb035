package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/config"
	"github.com/BaSui01/lexflow/types"
)

// Scorer calls a rerank endpoint (query plus documents in, one relevance
// score per document out). It satisfies the rerank package's ScoreModel;
// scores are returned raw, normalization is the reranker's job.
type Scorer struct {
	client *Client
	url    string
	model  string
}

// NewScorer builds a rerank scoring client. An empty RerankURL yields a
// scorer whose calls fail, which the reranker absorbs as pass-through.
func NewScorer(cfg config.LLMConfig, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scorer{
		client: NewClient(cfg, logger),
		url:    cfg.RerankURL,
		model:  cfg.RerankModel,
	}
	s.client.logger = logger.With(zap.String("component", "rerank_scorer"))
	return s
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Score returns one score per input text, in input order.
func (s *Scorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if s.url == "" {
		return nil, types.NewError(types.ErrRerankUnavailable, "rerank endpoint not configured")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{Model: s.model, Query: query, Documents: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	var resp rerankResponse
	if err := s.client.post(ctx, s.url, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) != len(texts) {
		return nil, types.NewError(types.ErrRerankUnavailable,
			fmt.Sprintf("rerank returned %d scores for %d documents", len(resp.Results), len(texts)))
	}

	// Endpoints usually return results sorted by score; restore input order.
	scores := make([]float64, len(texts))
	for _, r := range resp.Results {
		if r.Index < 0 || r.Index >= len(texts) {
			return nil, types.NewError(types.ErrRerankUnavailable, "rerank returned out-of-range index")
		}
		scores[r.Index] = r.RelevanceScore
	}
	return scores, nil
}
