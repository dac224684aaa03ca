// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// CacheStore keeps sessions in process memory. Sessions expire after the
// configured TTL of inactivity.
type CacheStore struct {
	mu          sync.Mutex
	cache       *cache.Cache
	ttl         time.Duration
	maxMessages int
}

// NewCacheStore creates an in-memory store.
func NewCacheStore(cfg types.MemoryConfig) *CacheStore {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	cleanup := 10 * time.Minute
	if ttl > 0 && ttl < cleanup {
		cleanup = ttl
	}
	return &CacheStore{
		cache:       cache.New(ttl, cleanup),
		ttl:         ttl,
		maxMessages: cfg.MaxMessages,
	}
}

func (c *CacheStore) get(sessionID string) []types.Message {
	if x, found := c.cache.Get(sessionID); found {
		return x.([]types.Message)
	}
	return nil
}

func (c *CacheStore) Recall(_ context.Context, sessionID string) (types.Recollection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return recollection(tail(c.get(sessionID), c.maxMessages)), nil
}

func (c *CacheStore) History(_ context.Context, sessionID string) ([]types.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Message(nil), c.get(sessionID)...), nil
}

func (c *CacheStore) Append(_ context.Context, sessionID string, msgs ...types.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	stored := append([]types.Message(nil), c.get(sessionID)...)
	for _, m := range msgs {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		stored = append(stored, m)
	}
	c.cache.Set(sessionID, stored, cache.DefaultExpiration)
	return nil
}

func (c *CacheStore) Clear(_ context.Context, sessionID string) error {
	c.cache.Delete(sessionID)
	return nil
}

func (c *CacheStore) Close() error {
	c.cache.Flush()
	return nil
}
