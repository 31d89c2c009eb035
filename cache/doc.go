// Package cache implements the session-scoped evidence cache.
//
// Entries are keyed by (session ID, SHA-256 of fragment body text), so a
// piece of evidence retrieved twice within a session, including by two
// concurrently running tasks, is stored exactly once. Inserting a duplicate
// is a no-op, not an error. Sessions are evicted after their idle time
// exceeds the configured TTL.
//
// Two backends share the same semantics: an in-process memory store and a
// Redis store for multi-instance deployments.
package cache
