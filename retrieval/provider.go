package retrieval

import (
	"context"

	"github.com/BaSui01/lexflow/types"
)

// Provider retrieves evidence fragments for a query. Implementations include
// the local hybrid stores in this package and the web providers in the search
// package; the cascade layer treats them uniformly.
type Provider interface {
	// Retrieve returns fragments ordered best-first. An empty slice with a
	// nil error means the provider ran but found nothing, which lets a
	// cascade fall through to the next provider.
	Retrieve(ctx context.Context, query types.Query) ([]types.EvidenceFragment, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}

// Embedder turns text into a dense vector. The local stores use it for the
// query side; passage embeddings are produced at ingest time.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
