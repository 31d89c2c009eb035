package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/types"
)

// MemoryStore is the in-process Store backend.
type MemoryStore struct {
	ttl      time.Duration
	sessions map[string]*memorySession
	mu       sync.RWMutex
	logger   *zap.Logger

	// now is swappable for eviction tests.
	now func() time.Time
}

type memorySession struct {
	entries      map[string]*Entry
	createdAt    time.Time
	lastAccessed time.Time
}

// NewMemoryStore creates a memory-backed session cache with the given idle TTL.
func NewMemoryStore(ttl time.Duration, logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]*memorySession),
		logger:   logger.With(zap.String("component", "evidence_cache")),
		now:      time.Now,
	}
}

// Put inserts a fragment, deduplicating by body-text content hash.
func (s *MemoryStore) Put(ctx context.Context, sessionID string, frag types.EvidenceFragment) (bool, error) {
	hash := frag.ContentHash()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[sessionID]
	if sess == nil {
		sess = &memorySession{
			entries:   make(map[string]*Entry),
			createdAt: now,
		}
		s.sessions[sessionID] = sess
	}
	sess.lastAccessed = now

	if _, exists := sess.entries[hash]; exists {
		// Concurrent tasks retrieving overlapping evidence race here;
		// the duplicate insert must stay a silent no-op.
		return false, nil
	}

	sess.entries[hash] = &Entry{
		Fragment:       frag,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	return true, nil
}

// Get looks up a fragment by content hash and refreshes access times.
func (s *MemoryStore) Get(ctx context.Context, sessionID, contentHash string) (*types.EvidenceFragment, bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[sessionID]
	if sess == nil {
		return nil, false, nil
	}
	sess.lastAccessed = now

	entry, ok := sess.entries[contentHash]
	if !ok {
		return nil, false, nil
	}
	entry.LastAccessedAt = now

	frag := entry.Fragment
	return &frag, true, nil
}

// SessionFragments returns every fragment cached for a session.
func (s *MemoryStore) SessionFragments(ctx context.Context, sessionID string) ([]types.EvidenceFragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.sessions[sessionID]
	if sess == nil {
		return nil, nil
	}
	out := make([]types.EvidenceFragment, 0, len(sess.entries))
	for _, entry := range sess.entries {
		out = append(out, entry.Fragment)
	}
	return out, nil
}

// ClearSession drops one session.
func (s *MemoryStore) ClearSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// PurgeExpired evicts sessions whose idle time exceeds the TTL.
func (s *MemoryStore) PurgeExpired(ctx context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, sess := range s.sessions {
		if now.Sub(sess.lastAccessed) > s.ttl {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.sessions, id)
	}

	if len(expired) > 0 {
		s.logger.Info("evicted idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired), nil
}

// Stats reports live session and entry counts.
func (s *MemoryStore) Stats() (sessions, entries int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		entries += len(sess.entries)
	}
	return len(s.sessions), entries
}

// Close is a no-op for the memory backend.
func (s *MemoryStore) Close() error {
	return nil
}
