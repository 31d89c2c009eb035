// Package types defines the shared data model of the lexflow research core:
// queries, evidence fragments, task specifications, task graphs, router
// decisions, and the structured error taxonomy used across all components.
//
// Everything in this package is plain data. Types are created by one
// component and consumed read-only by the next; the only sanctioned mutation
// is attaching a rerank score to an EvidenceFragment.
package types
