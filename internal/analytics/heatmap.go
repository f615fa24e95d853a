package analytics

import (
	"context"
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/auth"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/cache"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/daterange"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/streaks"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/telemetry/tracing"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/workouts"

	"go.opentelemetry.io/otel/attribute"
)

// GenerateHeatmapData is the whole-year activity heatmap across all programs.
func (e *Engine) GenerateHeatmapData(ctx context.Context, userID string, year int) (_ ActivityHeatmapData, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analytics.generateHeatmapData")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("year", year))

	if err = auth.RequireUserID(userID); err != nil {
		return ActivityHeatmapData{}, err
	}

	return e.yearHeatmaps.Fetch(ctx, cache.YearHeatmapKey(userID, year), func(ctx context.Context) (ActivityHeatmapData, error) {
		heatmap, err := e.buildSetBasedHeatmap(ctx, userID, daterange.ForYear(year, e.loc), "")
		if err != nil {
			return ActivityHeatmapData{}, err
		}
		heatmap.Year = year
		return heatmap, nil
	})
}

// GenerateSetBasedHeatmapData counts checked sets per calendar day of the set
// itself, not of its workout. An empty programID means all programs.
func (e *Engine) GenerateSetBasedHeatmapData(
	ctx context.Context,
	userID string,
	r daterange.Range,
	programID string,
) (_ ActivityHeatmapData, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analytics.generateSetBasedHeatmapData")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("range", r.String()),
		attribute.String("program", programID),
	)

	if err = auth.RequireUserID(userID); err != nil {
		return ActivityHeatmapData{}, err
	}

	return e.rangeHeatmaps.Fetch(ctx, cache.RangeHeatmapKey(userID, r, programID), func(ctx context.Context) (ActivityHeatmapData, error) {
		return e.buildSetBasedHeatmap(ctx, userID, r, programID)
	})
}

func (e *Engine) buildSetBasedHeatmap(ctx context.Context, userID string, r daterange.Range, programID string) (ActivityHeatmapData, error) {
	trees, err := e.collect(ctx, userID, fetchScope{
		programID:  programID,
		includeSet: checkedWithin(r),
	})
	if err != nil {
		return ActivityHeatmapData{}, err
	}

	counts := make(map[time.Time]int)
	total := 0
	for _, tree := range trees {
		for _, ex := range tree.exercises {
			for _, set := range ex.sets {
				counts[daterange.StartOfDay(set.CreatedAt.In(e.loc))]++
				total++
			}
		}
	}

	current, longest := streaks.Compute(counts, e.today())

	return ActivityHeatmapData{
		UserID:        userID,
		RangeStart:    r.Start,
		RangeEnd:      r.End,
		DailyCounts:   counts,
		CurrentStreak: current,
		LongestStreak: longest,
		TotalSets:     total,
		ProgramFilter: programID,
	}, nil
}

// GetMonthHeatmapData returns checked set counts per day of one calendar
// month. Out of range months roll over into the neighbouring year. When
// enabled, the previous and next month are warmed in the background.
func (e *Engine) GetMonthHeatmapData(ctx context.Context, userID string, year int, month time.Month) (_ MonthHeatmapData, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analytics.getMonthHeatmapData")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err = auth.RequireUserID(userID); err != nil {
		return MonthHeatmapData{}, err
	}

	year, month = daterange.AddMonths(year, month, 0)
	span.SetAttributes(
		attribute.Int("year", year),
		attribute.Int("month", int(month)),
	)

	data, err := e.fetchMonth(ctx, userID, year, month)
	if err != nil {
		return MonthHeatmapData{}, err
	}

	if e.prefetchEnabled {
		e.prefetchInBackground(ctx, userID, year, month)
	}

	return data, nil
}

func (e *Engine) fetchMonth(ctx context.Context, userID string, year int, month time.Month) (MonthHeatmapData, error) {
	return e.monthHeatmaps.Fetch(ctx, cache.MonthHeatmapKey(userID, year, month), func(ctx context.Context) (MonthHeatmapData, error) {
		return e.buildMonthHeatmap(ctx, userID, year, month)
	})
}

func (e *Engine) buildMonthHeatmap(ctx context.Context, userID string, year int, month time.Month) (MonthHeatmapData, error) {
	trees, err := e.collect(ctx, userID, fetchScope{
		includeSet: checkedWithin(daterange.ForMonth(year, month, e.loc)),
	})
	if err != nil {
		return MonthHeatmapData{}, err
	}

	counts := make(map[int]int)
	total := 0
	for _, tree := range trees {
		for _, ex := range tree.exercises {
			for _, set := range ex.sets {
				counts[set.CreatedAt.In(e.loc).Day()]++
				total++
			}
		}
	}

	return MonthHeatmapData{
		UserID:      userID,
		Year:        year,
		Month:       month,
		DailyCounts: counts,
		TotalSets:   total,
		FetchedAt:   e.now(),
	}, nil
}

func checkedWithin(r daterange.Range) func(workouts.Set) bool {
	return func(s workouts.Set) bool {
		return s.Checked && r.Contains(s.CreatedAt)
	}
}
