package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

var _ Cache[int] = (*RedisCache[int])(nil)

const scanBatchSize = 100

// RedisCache shares snapshots between service replicas. Keys live under
// a namespace prefix so Clear only touches this service's entries.
type RedisCache[V any] struct {
	rdb       redis.Cmdable
	namespace string
	validity  time.Duration
	now       func() time.Time
}

func NewRedisCache[V any](rdb redis.Cmdable, namespace string, validity time.Duration, now func() time.Time) *RedisCache[V] {
	if now == nil {
		now = time.Now
	}
	if namespace == "" {
		namespace = "analytics"
	}
	return &RedisCache[V]{
		rdb:       rdb,
		namespace: namespace,
		validity:  validity,
		now:       now,
	}
}

func (c *RedisCache[V]) redisKey(key string) string {
	return c.namespace + ":" + key
}

func (c *RedisCache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	data, err := c.rdb.Get(ctx, c.redisKey(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Errorf("redis cache get [%s]: %s", key, err)
		}
		return zero, false
	}

	var e entry[V]
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		log.Warnf("redis cache: undecodable entry [%s]: %s", key, err)
		return zero, false
	}
	if !isFresh(e.ComputedAt, c.now(), c.validity) {
		return zero, false
	}
	return e.Value, true
}

func (c *RedisCache[V]) Put(ctx context.Context, key string, value V) error {
	data, err := json.Marshal(entry[V]{Value: value, ComputedAt: c.now()})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := c.rdb.Set(ctx, c.redisKey(key), string(data), c.validity).Err(); err != nil {
		return fmt.Errorf("redis set [%s]: %w", key, err)
	}
	return nil
}

func (c *RedisCache[V]) Clear(ctx context.Context) error {
	return c.deleteMatching(ctx, c.namespace+":*")
}

func (c *RedisCache[V]) DeletePrefix(ctx context.Context, prefix string) error {
	return c.deleteMatching(ctx, c.redisKey(prefix)+"*")
}

func (c *RedisCache[V]) deleteMatching(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan [%s]: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
