package cascade

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/internal/metrics"
	"github.com/BaSui01/lexflow/retrieval"
	"github.com/BaSui01/lexflow/types"
)

// Mode selects the cascade strategy.
type Mode string

const (
	// ModeSequential tries providers in order, first non-empty wins.
	ModeSequential Mode = "sequential"
	// ModeParallelMerge runs the top two providers concurrently and merges.
	ModeParallelMerge Mode = "parallel_merge"
)

// Result is one cascade run's output: the fragments plus a pre-rendered
// context string for callers that consume text directly.
type Result struct {
	Context   string
	Fragments []types.EvidenceFragment
}

// Cascade runs a prioritized provider list with fallback.
type Cascade struct {
	providers []retrieval.Provider
	mode      Mode
	collector *metrics.Collector
	logger    *zap.Logger
}

// New builds a cascade over providers in priority order.
func New(providers []retrieval.Provider, mode Mode, logger *zap.Logger) *Cascade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cascade{
		providers: providers,
		mode:      mode,
		logger:    logger.With(zap.String("component", "cascade")),
	}
}

// WithCollector attaches a metrics collector. A nil collector is valid.
func (c *Cascade) WithCollector(collector *metrics.Collector) *Cascade {
	c.collector = collector
	return c
}

// Run executes the cascade. Empty fragments with a nil error means every
// provider ran but none found evidence; an error means every provider failed.
func (c *Cascade) Run(ctx context.Context, query types.Query) (Result, error) {
	if len(c.providers) == 0 {
		return Result{}, types.NewError(types.ErrAllProvidersFailed, "no providers configured")
	}

	var frags []types.EvidenceFragment
	var err error

	switch c.mode {
	case ModeParallelMerge:
		frags, err = c.runParallelMerge(ctx, query)
	default:
		frags, err = c.runSequential(ctx, query, c.providers)
	}
	if err != nil {
		return Result{}, err
	}

	return Result{Context: RenderContext(frags), Fragments: frags}, nil
}

// runSequential stops at the first provider returning at least one fragment.
// A provider error is recovered by advancing; it surfaces only when no
// provider succeeds and at least one failed.
func (c *Cascade) runSequential(ctx context.Context, query types.Query, providers []retrieval.Provider) ([]types.EvidenceFragment, error) {
	var lastErr error
	failures := 0

	for _, p := range providers {
		frags, err := p.Retrieve(ctx, query)
		c.collector.RecordProviderRequest(p.Name(), err != nil)
		if err != nil {
			c.logger.Warn("provider failed, advancing",
				zap.String("provider", p.Name()), zap.Error(err))
			lastErr = err
			failures++
			continue
		}
		if len(frags) > 0 {
			return frags, nil
		}
		c.logger.Debug("provider returned no results, advancing",
			zap.String("provider", p.Name()))
	}

	if failures == len(providers) {
		return nil, types.NewError(types.ErrAllProvidersFailed, "every provider in the cascade failed").
			WithCause(lastErr)
	}
	return nil, nil
}

// runParallelMerge queries the top two providers concurrently, deduplicates
// the union, and falls through to the remaining providers sequentially only
// when the merged set is empty.
func (c *Cascade) runParallelMerge(ctx context.Context, query types.Query) ([]types.EvidenceFragment, error) {
	if len(c.providers) < 2 {
		return c.runSequential(ctx, query, c.providers)
	}

	primary, secondary := c.providers[0], c.providers[1]
	results := make([][]types.EvidenceFragment, 2)
	errs := make([]error, 2)

	var wg sync.WaitGroup
	for i, p := range []retrieval.Provider{primary, secondary} {
		i, p := i, p
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = p.Retrieve(ctx, query)
			c.collector.RecordProviderRequest(p.Name(), errs[i] != nil)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			c.logger.Warn("parallel provider failed",
				zap.String("provider", c.providers[i].Name()), zap.Error(err))
		}
	}

	merged := types.DedupFragments(append(results[0], results[1]...))
	if len(merged) > 0 {
		return merged, nil
	}

	rest := c.providers[2:]
	if len(rest) == 0 {
		if errs[0] != nil && errs[1] != nil {
			return nil, types.NewError(types.ErrAllProvidersFailed, "every provider in the cascade failed").
				WithCause(errs[1])
		}
		return nil, nil
	}

	c.logger.Debug("parallel merge empty, falling through")
	frags, err := c.runSequential(ctx, query, rest)
	if err != nil && (errs[0] == nil || errs[1] == nil) {
		// At least one of the parallel pair ran cleanly, so the cascade as
		// a whole did not fail; it found nothing.
		return nil, nil
	}
	return frags, err
}

// RenderContext flattens fragments into a source-attributed text block.
func RenderContext(frags []types.EvidenceFragment) string {
	if len(frags) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range frags {
		if f.Heading != "" {
			fmt.Fprintf(&b, "Source: %s > %s\n%s\n\n", f.Title, f.Heading, f.BodyText)
		} else {
			fmt.Fprintf(&b, "Source: %s\n%s\n\n", f.Title, f.BodyText)
		}
	}
	return b.String()
}
