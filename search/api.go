package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/types"
)

// maxAPIQueryLen caps the query sent to the search API; longer instructions
// are truncated because some service tiers reject queries over ~400 chars.
const (
	maxAPIQueryLen  = 400
	safeAPIQueryLen = 390
)

// APISearcher talks to a JSON search API. The request carries the query, a
// result cap, and an optional domain allowlist the service applies
// server-side.
type APISearcher struct {
	endpoint       string
	apiKey         string
	includeDomains []string
	client         *http.Client
	logger         *zap.Logger
}

// NewAPISearcher builds a searcher for the given endpoint. includeDomains
// may be nil to search the open web.
func NewAPISearcher(endpoint, apiKey string, includeDomains []string, timeout time.Duration, logger *zap.Logger) *APISearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APISearcher{
		endpoint:       endpoint,
		apiKey:         apiKey,
		includeDomains: includeDomains,
		client:         &http.Client{Timeout: timeout},
		logger:         logger.With(zap.String("component", "api_search")),
	}
}

func (s *APISearcher) Name() string { return "api_search" }

type apiSearchRequest struct {
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	MaxResults     int      `json:"max_results"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type apiSearchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (s *APISearcher) Search(ctx context.Context, query string, maxResults int) ([]Hit, error) {
	if s.apiKey == "" {
		return nil, types.NewError(types.ErrProviderUnavailable, "search api key not configured").
			WithProvider(s.Name())
	}

	if len(query) > maxAPIQueryLen {
		cut := safeAPIQueryLen
		for cut > 0 && !utf8.RuneStart(query[cut]) {
			cut--
		}
		query = query[:cut]
	}

	body, err := json.Marshal(apiSearchRequest{
		Query:          query,
		SearchDepth:    "advanced",
		MaxResults:     maxResults,
		IncludeDomains: s.includeDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrProviderUnavailable, "search api request failed").
			WithCause(err).WithProvider(s.Name()).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrProviderUnavailable,
			fmt.Sprintf("search api returned status %d", resp.StatusCode)).
			WithProvider(s.Name()).WithRetryable(resp.StatusCode >= 500)
	}

	var parsed apiSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, types.NewError(types.ErrProviderUnavailable, "decode search response").
			WithCause(err).WithProvider(s.Name())
	}

	hits := make([]Hit, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.URL == "" {
			continue
		}
		hits = append(hits, Hit{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}

	s.logger.Debug("api search complete",
		zap.String("query", types.TruncateText(query, 80)),
		zap.Int("hits", len(hits)))
	return hits, nil
}
