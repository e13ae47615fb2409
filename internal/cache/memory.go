package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryProvider is an in-process Provider for single-instance deployments.
type MemoryProvider struct {
	mu   sync.RWMutex
	data map[string]item
	now  func() time.Time
}

type item struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryProvider creates an empty in-memory cache.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{data: make(map[string]item), now: time.Now}
}

func (c *MemoryProvider) live(it item) bool {
	return it.expiresAt.IsZero() || c.now().Before(it.expiresAt)
}

// Get returns a copy of the stored value if present and not expired.
func (c *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	it, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrCacheMiss
	}
	if !c.live(it) {
		c.mu.Lock()
		if cur, ok := c.data[key]; ok && !c.live(cur) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), it.value...), nil
}

// Set stores a value with optional TTL.
func (c *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = c.entry(value, ttl)
	return nil
}

// Del removes an entry.
func (c *MemoryProvider) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Close drops every entry.
func (c *MemoryProvider) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]item)
	return nil
}

func (c *MemoryProvider) entry(value []byte, ttl time.Duration) item {
	var expires time.Time
	if ttl > 0 {
		expires = c.now().Add(ttl)
	}
	return item{value: append([]byte(nil), value...), expiresAt: expires}
}
