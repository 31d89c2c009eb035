// Package cascade chains retrieval providers behind a single entry point.
//
// Sequential mode tries providers in priority order and stops at the first
// non-empty result set. Parallel-merge mode runs the two highest-priority
// providers concurrently, merges and deduplicates their output, and only
// falls through to the remaining providers when the merged set is empty.
// Provider failures advance the cascade; they surface only when every
// provider fails.
package cascade
