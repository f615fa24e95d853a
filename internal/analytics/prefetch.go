package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/daterange"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const prefetchTimeout = 30 * time.Second

// PrefetchAdjacentMonths warms the months before and after the anchor month
// concurrently. It is best effort: a failing leg never stops the other one,
// and nothing is reported to the caller.
func (e *Engine) PrefetchAdjacentMonths(ctx context.Context, userID string, year int, month time.Month) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analytics.prefetchAdjacentMonths")
	defer span.End()

	var (
		wg    sync.WaitGroup
		mutex sync.Mutex
		errs  error
	)
	for _, offset := range []int{-1, 1} {
		// offsets are relative to the anchor, never to the previous result
		y, m := daterange.AddMonths(year, month, offset)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.prefetchMonth(ctx, userID, y, m); err != nil {
				mutex.Lock()
				errs = multierr.Append(errs, err)
				mutex.Unlock()
			}
		}()
	}
	wg.Wait()

	if errs != nil {
		log.Warnf("analytics: prefetch around %d-%02d for [%s]: %s", year, month, userID, errs)
	}
}

func (e *Engine) prefetchMonth(ctx context.Context, userID string, year int, month time.Month) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("prefetch %d-%02d panicked: %v", year, month, r)
		}
		outcome := "ok"
		if err != nil {
			outcome = "failed"
		}
		e.metricsManager.CounterPrefetches.WithLabelValues(outcome).Inc()
	}()

	if _, err := e.fetchMonth(ctx, userID, year, month); err != nil {
		return fmt.Errorf("prefetch %d-%02d: %w", year, month, err)
	}
	return nil
}

// prefetchInBackground detaches from the request: the prefetch outlives the
// request context but keeps its trace.
func (e *Engine) prefetchInBackground(ctx context.Context, userID string, year int, month time.Month) {
	e.prefetchWG.Add(1)
	go func() {
		defer e.prefetchWG.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), prefetchTimeout)
		defer cancel()
		e.PrefetchAdjacentMonths(ctx, userID, year, month)
	}()
}
