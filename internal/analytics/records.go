package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/auth"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/cache"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/daterange"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/prs"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/telemetry/tracing"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/workouts"

	"go.opentelemetry.io/otel/attribute"
)

// GetPersonalRecords runs the batch detector over the last year of history,
// newest first. limit <= 0 means no limit; an empty exerciseType means all.
func (e *Engine) GetPersonalRecords(
	ctx context.Context,
	userID string,
	limit int,
	exerciseType workouts.ExerciseType,
) (_ []prs.PersonalRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analytics.getPersonalRecords")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("limit", limit),
		attribute.String("exercise_type", exerciseType.String()),
	)

	if err = auth.RequireUserID(userID); err != nil {
		return nil, err
	}

	key := cache.PersonalRecordsKey(userID, limit, exerciseType.String())
	return e.personalRecords.Fetch(ctx, key, func(ctx context.Context) ([]prs.PersonalRecord, error) {
		history, err := e.exerciseHistory(ctx, userID)
		if err != nil {
			return nil, err
		}

		records := []prs.PersonalRecord{}
		for _, entries := range history {
			for _, pr := range prs.DetectEntries(entries) {
				if exerciseType != "" && pr.ExerciseType != exerciseType {
					continue
				}
				records = append(records, pr)
			}
		}

		sortRecordsNewestFirst(records)
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}
		return records, nil
	})
}

// CheckSetForPR checks one freshly logged set against everything logged
// before it for the same movement. path must address the set's exercise.
// Returns nil when the set is not a record.
func (e *Engine) CheckSetForPR(
	ctx context.Context,
	userID string,
	path workouts.Path,
	setID string,
) (_ *prs.PersonalRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analytics.checkSetForPR")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("path", path.String()),
		attribute.String("set", setID),
	)

	if err = auth.RequireUserID(userID); err != nil {
		return nil, err
	}

	workoutPath := workouts.Path{ProgramID: path.ProgramID, WeekID: path.WeekID, WorkoutID: path.WorkoutID}
	exercises, err := e.store.ListExercises(ctx, userID, workoutPath)
	if err != nil {
		return nil, fmt.Errorf("list exercises of [%s]: %w", workoutPath, err)
	}
	exercise, found := findByID(exercises, path.ExerciseID, func(ex workouts.Exercise) string { return ex.ID })
	if !found {
		return nil, fmt.Errorf("exercise [%s]: %w", path, workouts.ErrNotFound)
	}

	sets, err := e.store.ListSets(ctx, userID, path)
	if err != nil {
		return nil, fmt.Errorf("list sets of [%s]: %w", path, err)
	}
	newSet, found := findByID(sets, setID, func(s workouts.Set) string { return s.ID })
	if !found {
		return nil, fmt.Errorf("set [%s] under [%s]: %w", setID, path, workouts.ErrNotFound)
	}

	seen := make(map[string]bool)
	var prior []workouts.Set
	addPrior := func(s workouts.Set) {
		if seen[s.ID] || s.ID == newSet.ID || s.CreatedAt.After(newSet.CreatedAt) {
			return
		}
		seen[s.ID] = true
		prior = append(prior, s)
	}
	for _, s := range sets {
		addPrior(s)
	}
	history, err := e.exerciseHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, entry := range history[exerciseIdentity(exercise)] {
		addPrior(entry.Set)
	}

	return prs.CheckForNewPR(newSet, exercise, prior), nil
}

// exerciseHistory groups the last year of sets by exercise identity.
// Exercises are per-workout documents, so the same movement logged in
// different weeks shows up under different ids.
func (e *Engine) exerciseHistory(ctx context.Context, userID string) (map[string][]prs.Entry, error) {
	r := daterange.LastYear(e.Now())
	trees, err := e.collect(ctx, userID, fetchScope{
		includeSet: func(s workouts.Set) bool {
			return r.Contains(s.CreatedAt)
		},
	})
	if err != nil {
		return nil, err
	}

	history := make(map[string][]prs.Entry)
	for _, tree := range trees {
		for _, ex := range tree.exercises {
			id := exerciseIdentity(ex.exercise)
			for _, set := range ex.sets {
				history[id] = append(history[id], prs.Entry{Exercise: ex.exercise, Set: set})
			}
		}
	}
	return history, nil
}

// exerciseIdentity is the case and whitespace insensitive name plus type.
func exerciseIdentity(ex workouts.Exercise) string {
	name := strings.ToLower(strings.Join(strings.Fields(ex.Name), " "))
	if name == "" {
		name = "#" + ex.ID
	}
	return name + "|" + ex.ExerciseType.String()
}

func findByID[T any](items []T, id string, idOf func(T) string) (T, bool) {
	for _, item := range items {
		if idOf(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}
