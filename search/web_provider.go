package search

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/lexflow/types"
)

// hydrationWorkers bounds concurrent full-text fetches per provider call.
const hydrationWorkers = 5

// WebProvider adapts a Searcher plus an Extractor into the uniform retrieval
// contract: search for hits, hydrate snippets into full body text, emit
// evidence fragments tagged with the searcher's name as origin.
type WebProvider struct {
	searcher   Searcher
	extractor  Extractor
	maxResults int
	logger     *zap.Logger
}

// NewWebProvider wires a searcher to an extractor chain.
func NewWebProvider(searcher Searcher, extractor Extractor, maxResults int, logger *zap.Logger) *WebProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebProvider{
		searcher:   searcher,
		extractor:  extractor,
		maxResults: maxResults,
		logger:     logger.With(zap.String("component", "web_provider"), zap.String("searcher", searcher.Name())),
	}
}

func (p *WebProvider) Name() string { return p.searcher.Name() }

// Retrieve searches and hydrates. Hydration failures degrade that hit to its
// snippet instead of dropping it; a snippet is still evidence.
func (p *WebProvider) Retrieve(ctx context.Context, query types.Query) ([]types.EvidenceFragment, error) {
	hits, err := p.searcher.Search(ctx, query.Text, p.maxResults)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	bodies := p.hydrate(ctx, hits)

	frags := make([]types.EvidenceFragment, 0, len(hits))
	for i, hit := range hits {
		body := bodies[i]
		if body == "" {
			body = hit.Snippet
		}
		if body == "" {
			continue
		}
		frags = append(frags, types.EvidenceFragment{
			ID:        types.HashContent(hit.URL)[:12],
			Title:     hit.Title,
			BodyText:  body,
			MatchText: hit.Snippet,
			Origin:    p.searcher.Name(),
			URL:       hit.URL,
		})
	}

	p.logger.Debug("web retrieval complete",
		zap.String("query", types.TruncateText(query.Text, 80)),
		zap.Int("hits", len(hits)),
		zap.Int("fragments", len(frags)))
	return frags, nil
}

// hydrate fetches full text for each hit through a bounded worker group.
// Results land in per-hit slots, so no locking is needed.
func (p *WebProvider) hydrate(ctx context.Context, hits []Hit) []string {
	bodies := make([]string, len(hits))
	if p.extractor == nil {
		return bodies
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrationWorkers)

	for i, hit := range hits {
		i, hit := i, hit
		if hit.URL == "" {
			continue
		}
		g.Go(func() error {
			text, err := p.extractor.Extract(gctx, hit.URL)
			if err != nil {
				p.logger.Debug("hydration failed, keeping snippet",
					zap.String("url", hit.URL), zap.Error(err))
				return nil
			}
			bodies[i] = text
			return nil
		})
	}
	_ = g.Wait()
	return bodies
}
