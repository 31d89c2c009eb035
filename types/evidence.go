package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// OriginLocalStore marks evidence retrieved from the local hybrid store.
// External providers use their own provider name as origin.
const OriginLocalStore = "local_store"

// QueryFilters narrows retrieval to a jurisdiction, year, or category.
// Zero values mean "no filter".
type QueryFilters struct {
	Jurisdiction string `json:"jurisdiction,omitempty"`
	Year         int    `json:"year,omitempty"`
	Category     string `json:"category,omitempty"`
}

// Query is the immutable input to a research run. It is created once per
// request and read-only thereafter. SessionID and UserID are opaque
// identifiers owned by the session boundary; the core passes them through
// unchanged and never validates them.
type Query struct {
	Text        string       `json:"text"`
	Filters     QueryFilters `json:"filters,omitempty"`
	DocumentRef string       `json:"document_ref,omitempty"`
	UserID      string       `json:"user_id,omitempty"`
	SessionID   string       `json:"session_id,omitempty"`
}

// EvidenceFragment is a retrievable unit of evidence.
//
// MatchText is the child span: the small unit similarity scores are computed
// against. BodyText is the parent span: the larger surrounding context handed
// to the generation step. The two must never be conflated: scoring reads
// MatchText, context rendering reads BodyText.
type EvidenceFragment struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Heading string `json:"heading,omitempty"`

	BodyText  string `json:"body_text"`
	MatchText string `json:"match_text"`

	Origin string `json:"origin"`
	URL    string `json:"url,omitempty"`

	LexicalScore   float64 `json:"lexical_score"`
	VectorDistance float64 `json:"vector_distance"`
	FusedScore     float64 `json:"fused_score"`
	RerankScore    float64 `json:"rerank_score,omitempty"`
}

// ScoringText returns the text used for similarity scoring: the match span
// when present, otherwise the full body.
func (f *EvidenceFragment) ScoringText() string {
	if f.MatchText != "" {
		return f.MatchText
	}
	return f.BodyText
}

// ContentHash returns the deduplication key for this fragment: the SHA-256
// hex digest of its body text.
func (f *EvidenceFragment) ContentHash() string {
	return HashContent(f.BodyText)
}

// DedupKey returns the identity used when merging fragments across
// providers: the URL when present, otherwise the content hash.
func (f *EvidenceFragment) DedupKey() string {
	if f.URL != "" {
		return f.URL
	}
	return f.ContentHash()
}

// HashContent computes the SHA-256 hex digest of a content string.
func HashContent(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// DedupFragments removes fragments whose DedupKey was already seen,
// preserving first-seen order.
func DedupFragments(frags []EvidenceFragment) []EvidenceFragment {
	seen := make(map[string]bool, len(frags))
	out := make([]EvidenceFragment, 0, len(frags))
	for _, f := range frags {
		key := f.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

// TruncateText shortens a string to maxLen runes for log output.
func TruncateText(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
