package dedup

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is a single-process Cache. Suitable when exactly one engine
// instance runs; multi-instance deployments need the redis cache instead.
// Expired entries are overwritten on access; Sweep reclaims the rest and is
// meant to run periodically. Memory stays bounded by the dedup window and
// the event rate.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (c *MemoryCache) TryClaim(_ context.Context, key string, window time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if expiry, ok := c.entries[key]; ok && now.Before(expiry) {
		return false, nil
	}

	c.entries[key] = now.Add(window)
	return true, nil
}

// Sweep purges expired entries and returns how many were removed.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, expiry := range c.entries {
		if !now.Before(expiry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
