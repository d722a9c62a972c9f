package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Cache stores encoded values under string keys with a fixed TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	// Incr atomically bumps a counter that never expires and returns its new
	// value. Get on the same key returns the value in decimal.
	Incr(ctx context.Context, key string) (int64, error)
}

// Memory is an in-process TTL cache. It is used when no Redis is configured.
type Memory struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry
	now func() time.Time
}

// a zero exp never expires
type entry struct {
	val []byte
	exp time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Memory{
		ttl: ttl,
		m:   make(map[string]entry),
		now: time.Now,
	}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if !e.exp.IsZero() && now.After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false, nil
	}

	return e.val, true, nil
}

func (c *Memory) Set(_ context.Context, key string, val []byte) error {
	// copy so later writes to val by the caller do not leak in
	buf := append([]byte(nil), val...)

	c.mu.Lock()
	c.m[key] = entry{val: buf, exp: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return nil
}

func (c *Memory) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int64
	if e, ok := c.m[key]; ok {
		v, err := strconv.ParseInt(string(e.val), 10, 64)
		if err != nil {
			return 0, err
		}
		n = v
	}
	n++

	c.m[key] = entry{val: []byte(strconv.FormatInt(n, 10))}
	return n, nil
}
