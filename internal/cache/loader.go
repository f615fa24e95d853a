package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/telemetry/metrics"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// errFlightAbandoned marks a computation whose owner's context ended first.
var errFlightAbandoned = errors.New("computation abandoned")

// Loader reads through a cache. Concurrent misses on the same key share one
// computation.
type Loader[V any] struct {
	cache          Cache[V]
	kind           string
	metricsManager *metrics.Manager
	group          singleflight.Group
	// valid, when set, lets a snapshot veto a cache hit
	valid func(V) bool
}

func NewLoader[V any](cache Cache[V], kind string, metricsManager *metrics.Manager) *Loader[V] {
	return &Loader[V]{
		cache:          cache,
		kind:           kind,
		metricsManager: metricsManager,
	}
}

// WithValidator makes Fetch treat cached values failing valid as misses.
func (l *Loader[V]) WithValidator(valid func(V) bool) *Loader[V] {
	l.valid = valid
	return l
}

func (l *Loader[V]) Cache() Cache[V] {
	return l.cache
}

// Fetch returns the cached value for key, computing and storing it on a miss.
// A failed Put is logged and the computed value is still returned. Results
// computed under a cancelled context are never stored; callers that only
// joined such a computation start their own.
func (l *Loader[V]) Fetch(ctx context.Context, key string, compute func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := l.get(ctx, key); ok {
		l.metricsManager.CounterCacheHits.WithLabelValues(l.kind).Inc()
		return v, nil
	}
	l.metricsManager.CounterCacheMisses.WithLabelValues(l.kind).Inc()

	for {
		v, err := l.load(ctx, key, compute)
		if errors.Is(err, errFlightAbandoned) && ctx.Err() == nil {
			log.Debugf("cache loader: flight for [%s] abandoned by its owner, retrying", key)
			continue
		}
		if err != nil && ctx.Err() != nil {
			return v, ctx.Err()
		}
		return v, err
	}
}

func (l *Loader[V]) load(ctx context.Context, key string, compute func(ctx context.Context) (V, error)) (V, error) {
	res, err, shared := l.group.Do(key, func() (interface{}, error) {
		// a flight that finished between our Get and Do already stored it
		if v, ok := l.get(ctx, key); ok {
			return v, nil
		}

		start := time.Now()
		v, err := compute(ctx)
		if ctx.Err() != nil {
			return v, fmt.Errorf("%w: %w", errFlightAbandoned, ctx.Err())
		}
		if err != nil {
			return v, err
		}
		l.metricsManager.HistogramAggregateDuration.WithLabelValues(l.kind).Observe(time.Since(start).Seconds())

		if err := l.cache.Put(ctx, key, v); err != nil {
			log.Errorf("cache put [%s]: %s", key, err)
		}
		return v, nil
	})
	if shared {
		log.Tracef("cache loader: shared result for [%s]", key)
	}

	v, ok := res.(V)
	if err != nil {
		return v, err
	}
	if !ok {
		var zero V
		return zero, fmt.Errorf("cache loader: unexpected result type %T", res)
	}
	return v, nil
}

func (l *Loader[V]) get(ctx context.Context, key string) (V, bool) {
	v, ok := l.cache.Get(ctx, key)
	if !ok {
		return v, false
	}
	if l.valid != nil && !l.valid(v) {
		return v, false
	}
	return v, true
}
