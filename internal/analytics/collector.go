package analytics

import (
	"context"
	"errors"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/telemetry/tracing"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/workouts"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	levelPrograms  = "programs"
	levelWeeks     = "weeks"
	levelWorkouts  = "workouts"
	levelExercises = "exercises"
	levelSets      = "sets"
)

// fetchScope narrows what the collector walks. Zero value walks everything.
type fetchScope struct {
	programID      string
	includeWorkout func(workouts.Workout) bool
	includeSet     func(workouts.Set) bool
}

type exerciseSets struct {
	exercise workouts.Exercise
	sets     []workouts.Set
}

type workoutTree struct {
	workout   workouts.Workout
	exercises []exerciseSets
}

type node[T any] struct {
	path  workouts.Path
	value T
}

// collect walks programs -> weeks -> workouts -> exercises -> sets one level
// at a time, fetching siblings concurrently. A failed list call contributes
// nothing: it is logged, counted, and the walk carries on with the rest.
// Cancellation is the exception and aborts the whole walk.
func (e *Engine) collect(ctx context.Context, userID string, scope fetchScope) (_ []workoutTree, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analytics.collect")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	programs, err := e.store.ListPrograms(ctx, userID)
	if err != nil {
		if isCancellation(ctx, err) {
			return nil, err
		}
		e.fetchFailed(levelPrograms, workouts.Path{}, err)
		programs = nil
	}

	var programNodes []node[workouts.Program]
	for _, p := range programs {
		if scope.programID != "" && p.ID != scope.programID {
			continue
		}
		programNodes = append(programNodes, node[workouts.Program]{
			path:  workouts.Path{ProgramID: p.ID},
			value: p,
		})
	}

	weekNodes, err := fanOut(ctx, e, levelWeeks, programNodes, func(ctx context.Context, path workouts.Path) ([]workouts.Week, error) {
		return e.store.ListWeeks(ctx, userID, path)
	}, func(parent workouts.Path, w workouts.Week) workouts.Path {
		parent.WeekID = w.ID
		return parent
	})
	if err != nil {
		return nil, err
	}

	workoutNodes, err := fanOut(ctx, e, levelWorkouts, weekNodes, func(ctx context.Context, path workouts.Path) ([]workouts.Workout, error) {
		return e.store.ListWorkouts(ctx, userID, path)
	}, func(parent workouts.Path, w workouts.Workout) workouts.Path {
		parent.WorkoutID = w.ID
		return parent
	})
	if err != nil {
		return nil, err
	}

	if scope.includeWorkout != nil {
		filtered := workoutNodes[:0]
		for _, n := range workoutNodes {
			if scope.includeWorkout(n.value) {
				filtered = append(filtered, n)
			}
		}
		workoutNodes = filtered
	}

	exerciseNodes, err := fanOut(ctx, e, levelExercises, workoutNodes, func(ctx context.Context, path workouts.Path) ([]workouts.Exercise, error) {
		return e.store.ListExercises(ctx, userID, path)
	}, func(parent workouts.Path, ex workouts.Exercise) workouts.Path {
		parent.ExerciseID = ex.ID
		return parent
	})
	if err != nil {
		return nil, err
	}

	setNodes, err := fanOut(ctx, e, levelSets, exerciseNodes, func(ctx context.Context, path workouts.Path) ([]workouts.Set, error) {
		return e.store.ListSets(ctx, userID, path)
	}, func(parent workouts.Path, _ workouts.Set) workouts.Path {
		return parent
	})
	if err != nil {
		return nil, err
	}

	setsByExercise := make(map[string][]workouts.Set, len(exerciseNodes))
	for _, n := range setNodes {
		if scope.includeSet != nil && !scope.includeSet(n.value) {
			continue
		}
		key := n.path.String()
		setsByExercise[key] = append(setsByExercise[key], n.value)
	}

	exercisesByWorkout := make(map[string][]exerciseSets, len(workoutNodes))
	for _, n := range exerciseNodes {
		workoutKey := workouts.Path{
			ProgramID: n.path.ProgramID,
			WeekID:    n.path.WeekID,
			WorkoutID: n.path.WorkoutID,
		}.String()
		exercisesByWorkout[workoutKey] = append(exercisesByWorkout[workoutKey], exerciseSets{
			exercise: n.value,
			sets:     setsByExercise[n.path.String()],
		})
	}

	trees := make([]workoutTree, 0, len(workoutNodes))
	for _, n := range workoutNodes {
		trees = append(trees, workoutTree{
			workout:   n.value,
			exercises: exercisesByWorkout[n.path.String()],
		})
	}

	span.SetAttributes(
		attribute.Int("programs", len(programNodes)),
		attribute.Int("workouts", len(trees)),
		attribute.Int("sets", len(setNodes)),
	)

	return trees, nil
}

// fanOut lists the children of every parent with at most fetchConcurrency
// calls in flight. Output keeps parent order, then child order.
func fanOut[P, C any](
	ctx context.Context,
	e *Engine,
	level string,
	parents []node[P],
	list func(ctx context.Context, path workouts.Path) ([]C, error),
	childPath func(parent workouts.Path, child C) workouts.Path,
) ([]node[C], error) {
	results := make([][]C, len(parents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fetchConcurrency)
	for i, parent := range parents {
		g.Go(func() error {
			children, err := list(gctx, parent.path)
			if err != nil {
				if isCancellation(gctx, err) {
					return err
				}
				e.fetchFailed(level, parent.path, err)
				return nil
			}
			results[i] = children
			return nil
		})
	}
	// only cancellation is returned, see above
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var nodes []node[C]
	for i, children := range results {
		for _, c := range children {
			nodes = append(nodes, node[C]{
				path:  childPath(parents[i].path, c),
				value: c,
			})
		}
	}
	return nodes, nil
}

func (e *Engine) fetchFailed(level string, path workouts.Path, err error) {
	e.metricsManager.CounterFetchFailures.WithLabelValues(level).Inc()
	log.Warnf("analytics: list %s under [%s] failed, treating as empty: %s", level, path, err)
}

// isCancellation tells a caller that gave up apart from a store that failed.
func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
