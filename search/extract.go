package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/types"
)

// ExtractorChain tries extractors in order and returns the first non-empty
// text. An extractor error moves to the next extractor rather than failing
// the chain; only a fully empty chain result is an error.
type ExtractorChain struct {
	extractors []Extractor
	logger     *zap.Logger
}

// NewExtractorChain builds a chain; order is priority order.
func NewExtractorChain(logger *zap.Logger, extractors ...Extractor) *ExtractorChain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtractorChain{
		extractors: extractors,
		logger:     logger.With(zap.String("component", "extractor_chain")),
	}
}

func (c *ExtractorChain) Extract(ctx context.Context, url string) (string, error) {
	for i, ex := range c.extractors {
		text, err := ex.Extract(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			c.logger.Debug("extractor failed, trying next",
				zap.Int("position", i), zap.String("url", url), zap.Error(err))
			continue
		}
		if text != "" {
			return text, nil
		}
	}
	return "", types.NewError(types.ErrExtractEmpty, "no extractor produced text").
		WithProvider("extractor_chain")
}
