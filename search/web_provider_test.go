package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/types"
)

type mockSearcher struct {
	name string
	hits []Hit
	err  error
}

func (m *mockSearcher) Search(ctx context.Context, query string, maxResults int) ([]Hit, error) {
	return m.hits, m.err
}

func (m *mockSearcher) Name() string { return m.name }

func TestWebProvider_HydratesHitsIntoFragments(t *testing.T) {
	t.Parallel()

	searcher := &mockSearcher{
		name: "api_search",
		hits: []Hit{
			{Title: "Case A", URL: "https://example.org/a", Snippet: "snippet a"},
			{Title: "Case B", URL: "https://example.org/b", Snippet: "snippet b"},
		},
	}
	extractor := ExtractorFunc(func(ctx context.Context, url string) (string, error) {
		if url == "https://example.org/a" {
			return "full judgment text for case a", nil
		}
		return "", errors.New("blocked")
	})

	p := NewWebProvider(searcher, extractor, 10, zap.NewNop())

	frags, err := p.Retrieve(context.Background(), types.Query{Text: "some query"})
	require.NoError(t, err)
	require.Len(t, frags, 2)

	assert.Equal(t, "full judgment text for case a", frags[0].BodyText)
	assert.Equal(t, "snippet a", frags[0].MatchText)
	assert.Equal(t, "snippet b", frags[1].BodyText, "failed hydration degrades to the snippet")
	assert.Equal(t, "api_search", frags[0].Origin)
	assert.Equal(t, "https://example.org/a", frags[0].URL)
}

func TestWebProvider_EmptySearchReturnsNil(t *testing.T) {
	t.Parallel()

	p := NewWebProvider(&mockSearcher{name: "s"}, nil, 10, zap.NewNop())

	frags, err := p.Retrieve(context.Background(), types.Query{Text: "query"})
	require.NoError(t, err)
	assert.Nil(t, frags)
}

func TestWebProvider_SearchErrorPropagates(t *testing.T) {
	t.Parallel()

	searcher := &mockSearcher{
		name: "s",
		err:  types.NewError(types.ErrProviderUnavailable, "down"),
	}
	p := NewWebProvider(searcher, nil, 10, zap.NewNop())

	_, err := p.Retrieve(context.Background(), types.Query{Text: "query"})
	require.Error(t, err)
	assert.Equal(t, types.ErrProviderUnavailable, types.GetErrorCode(err))
}

func TestWebProvider_DropsHitsWithNoText(t *testing.T) {
	t.Parallel()

	searcher := &mockSearcher{
		name: "s",
		hits: []Hit{{Title: "Bare", URL: "https://example.org/bare"}},
	}
	p := NewWebProvider(searcher, nil, 10, zap.NewNop())

	frags, err := p.Retrieve(context.Background(), types.Query{Text: "query"})
	require.NoError(t, err)
	assert.Empty(t, frags, "a hit with neither body nor snippet is not evidence")
}
