package cache

import (
	"context"
	"time"

	"github.com/BaSui01/lexflow/types"
)

// Entry is a cached evidence fragment with access bookkeeping.
type Entry struct {
	Fragment       types.EvidenceFragment `json:"fragment"`
	CreatedAt      time.Time              `json:"created_at"`
	LastAccessedAt time.Time              `json:"last_accessed_at"`
}

// Store is the session evidence cache contract.
//
// All methods are safe for concurrent use by tasks of the same session.
type Store interface {
	// Put inserts a fragment under (sessionID, content hash of its body).
	// Returns true when the fragment was newly stored, false when an entry
	// with the same content hash already existed (idempotent no-op).
	Put(ctx context.Context, sessionID string, frag types.EvidenceFragment) (bool, error)

	// Get looks up a fragment by content hash and refreshes the session's
	// last-access time. The boolean reports a hit.
	Get(ctx context.Context, sessionID, contentHash string) (*types.EvidenceFragment, bool, error)

	// SessionFragments returns all fragments cached for a session.
	SessionFragments(ctx context.Context, sessionID string) ([]types.EvidenceFragment, error)

	// ClearSession drops all entries of one session.
	ClearSession(ctx context.Context, sessionID string) error

	// PurgeExpired evicts sessions idle longer than the store's TTL and
	// returns how many sessions were dropped.
	PurgeExpired(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}
