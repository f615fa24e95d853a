// Package cache holds computed analytics snapshots for a fixed validity window.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
)

const DefaultValidity = 5 * time.Minute

const (
	BackendMemory    = "memory"
	BackendFreecache = "freecache"
	BackendRedis     = "redis"
)

// Cache maps a key to a value and the time it was computed. Get reports a
// miss once the validity window has elapsed since the last Put. Put always
// overwrites. There is no size based eviction in the memory backend.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Put(ctx context.Context, key string, value V) error
	Clear(ctx context.Context) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type Options struct {
	Backend  string
	Validity time.Duration
	// Now is the clock used to stamp and check entries, time.Now if nil.
	Now func() time.Time

	// Free is shared by every freecache backed cache.
	Free *freecache.Cache
	// Redis and Namespace are used by the redis backend.
	Redis     redis.Cmdable
	Namespace string
}

func (o Options) validity() time.Duration {
	if o.Validity <= 0 {
		return DefaultValidity
	}
	return o.Validity
}

func (o Options) clock() func() time.Time {
	if o.Now == nil {
		return time.Now
	}
	return o.Now
}

// New builds a typed cache on the configured backend.
func New[V any](opts Options) (Cache[V], error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryCache[V](opts.validity(), opts.clock()), nil
	case BackendFreecache:
		if opts.Free == nil {
			return nil, fmt.Errorf("freecache backend: missing freecache instance")
		}
		return NewFreeCache[V](opts.Free, opts.validity(), opts.clock()), nil
	case BackendRedis:
		if opts.Redis == nil {
			return nil, fmt.Errorf("redis backend: missing redis client")
		}
		return NewRedisCache[V](opts.Redis, opts.Namespace, opts.validity(), opts.clock()), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", opts.Backend)
	}
}

// entry is the serialized form used by the byte oriented backends.
type entry[V any] struct {
	Value      V         `json:"v"`
	ComputedAt time.Time `json:"t"`
}

func isFresh(computedAt, now time.Time, validity time.Duration) bool {
	return now.Sub(computedAt) < validity
}
