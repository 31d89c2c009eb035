// Package retrieval implements hybrid lexical plus vector retrieval over a
// local passage store.
//
// Candidates are pre-selected by vector distance (top pre-K), then lexical
// and vector scores are standardized across the candidate set and fused into
// a single ranking score. Two backends exist: an in-memory store for tests
// and small corpora, and a Postgres store using full-text search and pgvector.
package retrieval
