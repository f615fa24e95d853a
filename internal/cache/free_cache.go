package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

var _ Cache[int] = (*FreeCache[int])(nil)

// FreeCache stores JSON encoded entries in a size bounded freecache instance.
// Unlike the memory backend, old entries are evicted when the instance fills up.
type FreeCache[V any] struct {
	cache    *freecache.Cache
	validity time.Duration
	now      func() time.Time
}

func NewFreeCache[V any](fc *freecache.Cache, validity time.Duration, now func() time.Time) *FreeCache[V] {
	if now == nil {
		now = time.Now
	}
	return &FreeCache[V]{
		cache:    fc,
		validity: validity,
		now:      now,
	}
}

func (c *FreeCache[V]) Get(_ context.Context, key string) (V, bool) {
	var zero V
	data, err := c.cache.Get([]byte(key))
	if err != nil {
		return zero, false
	}

	var e entry[V]
	if err := json.Unmarshal(data, &e); err != nil {
		log.Warnf("freecache: drop undecodable entry [%s]: %s", key, err)
		c.cache.Del([]byte(key))
		return zero, false
	}
	if !isFresh(e.ComputedAt, c.now(), c.validity) {
		return zero, false
	}
	return e.Value, true
}

func (c *FreeCache[V]) Put(_ context.Context, key string, value V) error {
	data, err := json.Marshal(entry[V]{Value: value, ComputedAt: c.now()})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	// freecache expiry is a coarse upper bound, staleness is decided on read
	expireSeconds := int(math.Ceil(c.validity.Seconds()))
	if err := c.cache.Set([]byte(key), data, expireSeconds); err != nil {
		return fmt.Errorf("freecache set [%s]: %w", key, err)
	}
	return nil
}

func (c *FreeCache[V]) Clear(_ context.Context) error {
	c.cache.Clear()
	return nil
}

func (c *FreeCache[V]) DeletePrefix(_ context.Context, prefix string) error {
	var keys [][]byte
	it := c.cache.NewIterator()
	for e := it.Next(); e != nil; e = it.Next() {
		if bytes.HasPrefix(e.Key, []byte(prefix)) {
			keys = append(keys, e.Key)
		}
	}
	for _, k := range keys {
		c.cache.Del(k)
	}
	return nil
}
