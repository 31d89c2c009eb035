package search

import (
	"context"
)

// Hit is one raw search result before hydration.
type Hit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher queries an external search service.
type Searcher interface {
	// Search returns up to maxResults hits. An empty slice with nil error
	// means the service ran but found nothing.
	Search(ctx context.Context, query string, maxResults int) ([]Hit, error)

	// Name identifies the searcher in logs, metrics, and fragment origins.
	Name() string
}

// Extractor turns a URL into clean body text. An empty string with a nil
// error means the page yielded no usable content.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, url string) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}
