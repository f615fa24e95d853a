// Package analytics turns a user's logged training hierarchy into derived
// views (totals, heatmaps, streaks, personal records) and serves them from
// a time-boxed cache.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/auth"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/cache"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/daterange"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/prs"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/telemetry/metrics"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/telemetry/tracing"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/workouts"

	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

const DefaultFetchConcurrency = 8

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=analytics_test

type recordStore interface {
	ListPrograms(ctx context.Context, userID string) ([]workouts.Program, error)
	ListWeeks(ctx context.Context, userID string, path workouts.Path) ([]workouts.Week, error)
	ListWorkouts(ctx context.Context, userID string, path workouts.Path) ([]workouts.Workout, error)
	ListExercises(ctx context.Context, userID string, path workouts.Path) ([]workouts.Exercise, error)
	ListSets(ctx context.Context, userID string, path workouts.Path) ([]workouts.Set, error)
}

type Config struct {
	// FetchConcurrency bounds concurrent store calls per hierarchy level.
	FetchConcurrency int
	// Location decides where calendar days start and end.
	Location               *time.Location
	PrefetchAdjacentMonths bool
	Validity               time.Duration
	Now                    func() time.Time
}

// Caches holds one typed cache per snapshot kind.
type Caches struct {
	WorkoutAnalytics cache.Cache[WorkoutAnalytics]
	Heatmaps         cache.Cache[ActivityHeatmapData]
	MonthHeatmaps    cache.Cache[MonthHeatmapData]
	PersonalRecords  cache.Cache[[]prs.PersonalRecord]
	KeyStatistics    cache.Cache[KeyStatistics]
}

func NewCaches(opts cache.Options) (_ Caches, err error) {
	var c Caches
	if c.WorkoutAnalytics, err = cache.New[WorkoutAnalytics](opts); err != nil {
		return Caches{}, err
	}
	if c.Heatmaps, err = cache.New[ActivityHeatmapData](opts); err != nil {
		return Caches{}, err
	}
	if c.MonthHeatmaps, err = cache.New[MonthHeatmapData](opts); err != nil {
		return Caches{}, err
	}
	if c.PersonalRecords, err = cache.New[[]prs.PersonalRecord](opts); err != nil {
		return Caches{}, err
	}
	if c.KeyStatistics, err = cache.New[KeyStatistics](opts); err != nil {
		return Caches{}, err
	}
	return c, nil
}

// Clear drops every cached snapshot of every user. On a shared backend this
// is an operator action, never a per-request one.
func (c Caches) Clear(ctx context.Context) error {
	err := multierr.Combine(
		c.WorkoutAnalytics.Clear(ctx),
		c.Heatmaps.Clear(ctx),
		c.MonthHeatmaps.Clear(ctx),
		c.PersonalRecords.Clear(ctx),
		c.KeyStatistics.Clear(ctx),
	)
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	log.Debugln("analytics cache cleared")
	return nil
}

func (c Caches) deletePrefix(ctx context.Context, prefix string) error {
	return multierr.Combine(
		c.WorkoutAnalytics.DeletePrefix(ctx, prefix),
		c.Heatmaps.DeletePrefix(ctx, prefix),
		c.MonthHeatmaps.DeletePrefix(ctx, prefix),
		c.PersonalRecords.DeletePrefix(ctx, prefix),
		c.KeyStatistics.DeletePrefix(ctx, prefix),
	)
}

type Engine struct {
	store          recordStore
	caches         Caches
	metricsManager *metrics.Manager

	workoutAnalytics *cache.Loader[WorkoutAnalytics]
	yearHeatmaps     *cache.Loader[ActivityHeatmapData]
	rangeHeatmaps    *cache.Loader[ActivityHeatmapData]
	monthHeatmaps    *cache.Loader[MonthHeatmapData]
	personalRecords  *cache.Loader[[]prs.PersonalRecord]
	keyStatistics    *cache.Loader[KeyStatistics]

	fetchConcurrency int
	loc              *time.Location
	validity         time.Duration
	now              func() time.Time
	prefetchEnabled  bool

	prefetchWG sync.WaitGroup
}

func NewEngine(
	store recordStore,
	caches Caches,
	metricsManager *metrics.Manager,
	cfg Config,
) *Engine {
	e := &Engine{
		store:            store,
		caches:           caches,
		metricsManager:   metricsManager,
		fetchConcurrency: cfg.FetchConcurrency,
		loc:              cfg.Location,
		validity:         cfg.Validity,
		now:              cfg.Now,
		prefetchEnabled:  cfg.PrefetchAdjacentMonths,
	}
	if e.fetchConcurrency <= 0 {
		e.fetchConcurrency = DefaultFetchConcurrency
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	if e.validity <= 0 {
		e.validity = cache.DefaultValidity
	}
	if e.now == nil {
		e.now = time.Now
	}

	e.workoutAnalytics = cache.NewLoader(caches.WorkoutAnalytics, cache.KindWorkoutAnalytics, metricsManager)
	e.yearHeatmaps = cache.NewLoader(caches.Heatmaps, cache.KindYearHeatmap, metricsManager)
	e.rangeHeatmaps = cache.NewLoader(caches.Heatmaps, cache.KindRangeHeatmap, metricsManager)
	e.monthHeatmaps = cache.NewLoader(caches.MonthHeatmaps, cache.KindMonthHeatmap, metricsManager).
		WithValidator(func(m MonthHeatmapData) bool {
			return m.IsCacheValidFor(e.now(), e.validity)
		})
	e.personalRecords = cache.NewLoader(caches.PersonalRecords, cache.KindPersonalRecords, metricsManager)
	e.keyStatistics = cache.NewLoader(caches.KeyStatistics, cache.KindKeyStatistics, metricsManager)

	return e
}

// Location is the time zone calendar days are computed in.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Now is the engine clock in the engine time zone.
func (e *Engine) Now() time.Time {
	return e.now().In(e.loc)
}

func (e *Engine) today() time.Time {
	return daterange.StartOfDay(e.Now())
}

// ComputeWorkoutAnalytics summarizes the workouts created within r together
// with all of their exercises and sets.
func (e *Engine) ComputeWorkoutAnalytics(ctx context.Context, userID string, r daterange.Range) (_ WorkoutAnalytics, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analytics.computeWorkoutAnalytics")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("range", r.String()))

	if err = auth.RequireUserID(userID); err != nil {
		return WorkoutAnalytics{}, err
	}

	return e.workoutAnalytics.Fetch(ctx, cache.WorkoutAnalyticsKey(userID, r), func(ctx context.Context) (WorkoutAnalytics, error) {
		trees, err := e.collect(ctx, userID, fetchScope{
			includeWorkout: func(w workouts.Workout) bool {
				return r.Contains(w.CreatedAt)
			},
		})
		if err != nil {
			return WorkoutAnalytics{}, err
		}
		return buildWorkoutAnalytics(userID, r, trees), nil
	})
}

func buildWorkoutAnalytics(userID string, r daterange.Range, trees []workoutTree) WorkoutAnalytics {
	wa := WorkoutAnalytics{
		UserID:                userID,
		StartDate:             r.Start,
		EndDate:               r.End,
		TotalWorkouts:         len(trees),
		ExerciseTypeBreakdown: make(map[workouts.ExerciseType]int),
		CompletedWorkoutIDs:   []string{},
	}

	setsPerWorkout := make(stats.Float64Data, 0, len(trees))
	minutesPerWorkout := make(stats.Float64Data, 0, len(trees))
	for _, tree := range trees {
		var workoutSets, workoutChecked, workoutSeconds int
		for _, ex := range tree.exercises {
			wa.ExerciseTypeBreakdown[ex.exercise.ExerciseType]++
			for _, set := range ex.sets {
				workoutSets++
				if set.Checked {
					workoutChecked++
				}
				if v, ok := set.Volume(); ok {
					wa.TotalVolume += v
				}
				if set.Duration != nil {
					workoutSeconds += *set.Duration
				}
			}
		}

		wa.TotalSets += workoutSets
		wa.CheckedSets += workoutChecked
		wa.TotalDurationSeconds += workoutSeconds
		if workoutSets > 0 && workoutChecked == workoutSets {
			wa.CompletedWorkoutIDs = append(wa.CompletedWorkoutIDs, tree.workout.ID)
		}
		setsPerWorkout = append(setsPerWorkout, float64(workoutSets))
		minutesPerWorkout = append(minutesPerWorkout, float64(workoutSeconds)/60)
	}

	if wa.TotalWorkouts > 0 {
		wa.AverageWorkoutDurationMinutes = float64(wa.TotalDurationSeconds) / float64(wa.TotalWorkouts) / 60
		// both only fail on empty input
		wa.AverageSetsPerWorkout, _ = stats.Mean(setsPerWorkout)
		wa.MedianWorkoutDurationMinutes, _ = stats.Median(minutesPerWorkout)
	}
	wa.MostUsedExerciseType = mostUsedExerciseType(wa.ExerciseTypeBreakdown)

	return wa
}

// mostUsedExerciseType breaks ties by the declaration order of exercise types.
func mostUsedExerciseType(breakdown map[workouts.ExerciseType]int) workouts.ExerciseType {
	var (
		best      workouts.ExerciseType
		bestCount int
	)
	for _, t := range workouts.AllExerciseTypes {
		if c := breakdown[t]; c > bestCount {
			best, bestCount = t, c
		}
	}
	return best
}

// ComputeKeyStatistics composes workout analytics, the range heatmap and the
// personal record history into one flat summary.
func (e *Engine) ComputeKeyStatistics(ctx context.Context, userID string, r daterange.Range) (_ KeyStatistics, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analytics.computeKeyStatistics")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err = auth.RequireUserID(userID); err != nil {
		return KeyStatistics{}, err
	}

	return e.keyStatistics.Fetch(ctx, cache.KeyStatisticsKey(userID, r), func(ctx context.Context) (KeyStatistics, error) {
		wa, err := e.ComputeWorkoutAnalytics(ctx, userID, r)
		if err != nil {
			return KeyStatistics{}, fmt.Errorf("workout analytics: %w", err)
		}
		heatmap, err := e.GenerateSetBasedHeatmapData(ctx, userID, r, "")
		if err != nil {
			return KeyStatistics{}, fmt.Errorf("heatmap: %w", err)
		}
		records, err := e.GetPersonalRecords(ctx, userID, 0, "")
		if err != nil {
			return KeyStatistics{}, fmt.Errorf("personal records: %w", err)
		}
		return buildKeyStatistics(userID, r, wa, heatmap, records), nil
	})
}

func buildKeyStatistics(
	userID string,
	r daterange.Range,
	wa WorkoutAnalytics,
	heatmap ActivityHeatmapData,
	records []prs.PersonalRecord,
) KeyStatistics {
	ks := KeyStatistics{
		UserID:                        userID,
		StartDate:                     r.Start,
		EndDate:                       r.End,
		TotalWorkouts:                 wa.TotalWorkouts,
		TotalSets:                     wa.TotalSets,
		CheckedSets:                   wa.CheckedSets,
		TotalVolume:                   wa.TotalVolume,
		TotalDurationMinutes:          float64(wa.TotalDurationSeconds) / 60,
		AverageWorkoutDurationMinutes: wa.AverageWorkoutDurationMinutes,
		CurrentStreak:                 heatmap.CurrentStreak,
		LongestStreak:                 heatmap.LongestStreak,
		MostUsedExerciseType:          wa.MostUsedExerciseType,
	}

	if wa.TotalSets > 0 {
		ks.CompletionPercentage = float64(wa.CheckedSets) / float64(wa.TotalSets) * 100
	}
	if days := r.DurationInDays(); days > 0 {
		ks.WorkoutsPerWeek = float64(wa.TotalWorkouts) / (float64(days) / 7)
	}
	for _, pr := range records {
		if r.Contains(pr.AchievedAt) {
			ks.PersonalRecords++
		}
	}

	return ks
}

// InvalidateUser drops the cached snapshots of one user.
func (e *Engine) InvalidateUser(ctx context.Context, userID string) error {
	if err := auth.RequireUserID(userID); err != nil {
		return err
	}
	if err := e.caches.deletePrefix(ctx, cache.UserPrefix(userID)); err != nil {
		return fmt.Errorf("invalidate user [%s]: %w", userID, err)
	}
	return nil
}

// Wait blocks until background prefetches have finished.
func (e *Engine) Wait() {
	e.prefetchWG.Wait()
}

func sortRecordsNewestFirst(records []prs.PersonalRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].AchievedAt.Equal(records[j].AchievedAt) {
			return records[i].AchievedAt.After(records[j].AchievedAt)
		}
		return records[i].ID < records[j].ID
	})
}
