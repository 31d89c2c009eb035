package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/config"
	"github.com/BaSui01/lexflow/types"
)

// RedisStore is the Redis-backed Store backend. Each session maps to one
// hash key (field = content hash, value = JSON entry); session idle
// expiration is delegated to the key's Redis TTL, refreshed on every access.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg config.RedisConfig, ttl time.Duration, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logger.Info("redis evidence cache connected", zap.String("addr", cfg.Addr))

	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "evidence_cache")),
	}, nil
}

func sessionKey(sessionID string) string {
	return "lexflow:evidence:" + sessionID
}

// Put inserts a fragment via HSETNX so concurrent duplicate inserts stay
// idempotent, then refreshes the session TTL.
func (s *RedisStore) Put(ctx context.Context, sessionID string, frag types.EvidenceFragment) (bool, error) {
	now := time.Now()
	entry := Entry{Fragment: frag, CreatedAt: now, LastAccessedAt: now}
	data, err := json.Marshal(entry)
	if err != nil {
		return false, fmt.Errorf("marshal cache entry: %w", err)
	}

	key := sessionKey(sessionID)
	added, err := s.client.HSetNX(ctx, key, frag.ContentHash(), data).Result()
	if err != nil {
		return false, fmt.Errorf("cache put: %w", err)
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		s.logger.Warn("refresh session ttl failed", zap.Error(err))
	}
	return added, nil
}

// Get looks up a fragment by content hash and refreshes the session TTL.
func (s *RedisStore) Get(ctx context.Context, sessionID, contentHash string) (*types.EvidenceFragment, bool, error) {
	key := sessionKey(sessionID)

	data, err := s.client.HGet(ctx, key, contentHash).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("unmarshal cache entry: %w", err)
	}

	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		s.logger.Warn("refresh session ttl failed", zap.Error(err))
	}
	return &entry.Fragment, true, nil
}

// SessionFragments returns every fragment cached for a session.
func (s *RedisStore) SessionFragments(ctx context.Context, sessionID string) ([]types.EvidenceFragment, error) {
	values, err := s.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache list: %w", err)
	}

	out := make([]types.EvidenceFragment, 0, len(values))
	for _, raw := range values {
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			s.logger.Warn("skipping undecodable cache entry", zap.Error(err))
			continue
		}
		out = append(out, entry.Fragment)
	}
	return out, nil
}

// ClearSession drops one session.
func (s *RedisStore) ClearSession(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op for the Redis backend: idle sessions expire
// through their key TTL.
func (s *RedisStore) PurgeExpired(ctx context.Context) (int, error) {
	return 0, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
