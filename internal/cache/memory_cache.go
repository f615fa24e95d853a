package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

var _ Cache[int] = (*MemoryCache[int])(nil)

type memoryEntry[V any] struct {
	value      V
	computedAt time.Time
}

type MemoryCache[V any] struct {
	mutex    sync.Mutex
	entries  map[string]memoryEntry[V]
	validity time.Duration
	now      func() time.Time
}

func NewMemoryCache[V any](validity time.Duration, now func() time.Time) *MemoryCache[V] {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache[V]{
		entries:  make(map[string]memoryEntry[V]),
		validity: validity,
		now:      now,
	}
}

func (c *MemoryCache[V]) Get(_ context.Context, key string) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !isFresh(e.computedAt, c.now(), c.validity) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

func (c *MemoryCache[V]) Put(_ context.Context, key string, value V) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[key] = memoryEntry[V]{value: value, computedAt: c.now()}
	return nil
}

func (c *MemoryCache[V]) Clear(_ context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries = make(map[string]memoryEntry[V])
	return nil
}

func (c *MemoryCache[V]) DeletePrefix(_ context.Context, prefix string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// Len counts entries, stale ones included.
func (c *MemoryCache[V]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}
