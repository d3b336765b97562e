package cache

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	data    []byte
	expires time.Time
}

// Memory is a process-local cache used when no REDIS_URL is set.
type Memory struct {
	mu    sync.Mutex
	items map[string]memEntry
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{items: map[string]memEntry{}, now: time.Now}
}

func (c *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.items, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.data...), true, nil
}

func (c *Memory) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memEntry{data: append([]byte(nil), data...)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.items[key] = e
	return nil
}

func (c *Memory) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// Null never stores anything.
type Null struct{}

func (Null) Get(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, nil }

func (Null) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error { return nil }

func (Null) Delete(ctx context.Context, key string) error { return nil }
