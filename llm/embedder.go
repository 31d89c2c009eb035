package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/config"
	"github.com/BaSui01/lexflow/types"
)

const embeddingsPath = "/v1/embeddings"

// Embedder calls an OpenAI-compatible embeddings endpoint. It satisfies the
// retrieval package's Embedder.
type Embedder struct {
	client *Client
	model  string
}

// NewEmbedder builds an embedding client sharing the completion client's
// transport and credentials.
func NewEmbedder(cfg config.LLMConfig, logger *zap.Logger) *Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Embedder{
		client: NewClient(cfg, logger),
		model:  cfg.EmbedModel,
	}
	e.client.logger = logger.With(zap.String("component", "embedder"))
	return e
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for one text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.client.apiKey == "" {
		return nil, types.NewError(types.ErrProviderUnavailable, "llm api key not configured")
	}

	body, err := json.Marshal(embedRequest{Model: e.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	var resp embedResponse
	if err := e.client.post(ctx, e.client.baseURL+embeddingsPath, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, types.NewError(types.ErrProviderUnavailable, "embedding response empty")
	}
	return resp.Data[0].Embedding, nil
}
