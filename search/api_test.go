package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/types"
)

func TestAPISearcher_Search(t *testing.T) {
	t.Parallel()

	var gotReq apiSearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"title": "Kesavananda Bharati", "url": "https://example.org/doc/1", "content": "basic structure doctrine"},
				{"title": "no url entry", "url": "", "content": "dropped"},
			},
		})
	}))
	defer srv.Close()

	s := NewAPISearcher(srv.URL, "test-key", []string{"indiankanoon.org"}, 5*time.Second, zap.NewNop())

	hits, err := s.Search(context.Background(), "basic structure doctrine", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1, "hits without a URL are dropped")
	assert.Equal(t, "Kesavananda Bharati", hits[0].Title)
	assert.Equal(t, "basic structure doctrine", hits[0].Snippet)

	assert.Equal(t, []string{"indiankanoon.org"}, gotReq.IncludeDomains)
	assert.Equal(t, 5, gotReq.MaxResults)
}

func TestAPISearcher_TruncatesLongQueries(t *testing.T) {
	t.Parallel()

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req apiSearchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotQuery = req.Query
		_ = json.NewEncoder(w).Encode(apiSearchResponse{})
	}))
	defer srv.Close()

	s := NewAPISearcher(srv.URL, "test-key", nil, 5*time.Second, zap.NewNop())

	long := strings.Repeat("x", 600)
	_, err := s.Search(context.Background(), long, 5)
	require.NoError(t, err)
	assert.Len(t, gotQuery, safeAPIQueryLen)
}

func TestAPISearcher_TruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req apiSearchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotQuery = req.Query
		_ = json.NewEncoder(w).Encode(apiSearchResponse{})
	}))
	defer srv.Close()

	s := NewAPISearcher(srv.URL, "test-key", nil, 5*time.Second, zap.NewNop())

	// One ASCII byte followed by 3-byte runes puts the cut point mid-rune.
	long := "s" + strings.Repeat("क", 200)
	_, err := s.Search(context.Background(), long, 5)
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(gotQuery), "truncation must not split a rune")
	assert.LessOrEqual(t, len(gotQuery), safeAPIQueryLen)
	assert.True(t, strings.HasPrefix(long, gotQuery))
}

func TestAPISearcher_MissingKey(t *testing.T) {
	t.Parallel()

	s := NewAPISearcher("http://unused", "", nil, time.Second, zap.NewNop())
	_, err := s.Search(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.Equal(t, types.ErrProviderUnavailable, types.GetErrorCode(err))
}

func TestAPISearcher_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewAPISearcher(srv.URL, "test-key", nil, time.Second, zap.NewNop())
	_, err := s.Search(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.Equal(t, types.ErrProviderUnavailable, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
}
