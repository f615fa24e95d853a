package workouts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

//go:embed schema.sql
var Schema string

var _ Store = (*PsqlStore)(nil)

type PsqlStore struct {
	db *pgxpool.Pool
}

func NewPsqlStore(db *pgxpool.Pool) *PsqlStore {
	return &PsqlStore{
		db: db,
	}
}

// Migrate creates the tables if missing.
func (s *PsqlStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PsqlStore) ListPrograms(ctx context.Context, userID string) (_ []Program, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.programs")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	rows, err := s.db.Query(
		ctx,
		`SELECT id, user_id, name, created_at FROM program WHERE user_id = $1 ORDER BY created_at;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var programs []Program
	for rows.Next() {
		var p Program
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		programs = append(programs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return programs, nil
}

func (s *PsqlStore) ListWeeks(ctx context.Context, userID string, path Path) (_ []Week, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.weeks")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("path", path.String()))

	rows, err := s.db.Query(
		ctx,
		`
			SELECT id, user_id, program_id, name, week_order, created_at
			FROM program_week
			WHERE user_id = $1 AND program_id = $2
			ORDER BY week_order;`,
		userID, path.ProgramID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var weeks []Week
	for rows.Next() {
		var w Week
		if err := rows.Scan(&w.ID, &w.UserID, &w.ProgramID, &w.Name, &w.Order, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		weeks = append(weeks, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return weeks, nil
}

func (s *PsqlStore) ListWorkouts(ctx context.Context, userID string, path Path) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.workouts")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("path", path.String()))

	rows, err := s.db.Query(
		ctx,
		`
			SELECT id, user_id, program_id, week_id, name, day_of_week, created_at
			FROM workout
			WHERE user_id = $1 AND program_id = $2 AND week_id = $3
			ORDER BY created_at;`,
		userID, path.ProgramID, path.WeekID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var workouts []Workout
	for rows.Next() {
		var w Workout
		if err := rows.Scan(&w.ID, &w.UserID, &w.ProgramID, &w.WeekID, &w.Name, &w.DayOfWeek, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return workouts, nil
}

func (s *PsqlStore) ListExercises(ctx context.Context, userID string, path Path) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.exercises")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("path", path.String()))

	rows, err := s.db.Query(
		ctx,
		`
			SELECT id, user_id, program_id, week_id, workout_id, name, exercise_type, order_index, created_at
			FROM workout_exercise
			WHERE user_id = $1 AND workout_id = $2
			ORDER BY order_index;`,
		userID, path.WorkoutID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var exercises []Exercise
	for rows.Next() {
		var (
			e      Exercise
			exType string
		)
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.ProgramID, &e.WeekID, &e.WorkoutID,
			&e.Name, &exType, &e.OrderIndex, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		e.ExerciseType, err = ParseExerciseType(exType)
		if err != nil {
			return nil, fmt.Errorf("exercise %s: %w", e.ID, err)
		}
		exercises = append(exercises, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return exercises, nil
}

func (s *PsqlStore) ListSets(ctx context.Context, userID string, path Path) (_ []Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.sets")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("path", path.String()))

	rows, err := s.db.Query(
		ctx,
		`
			SELECT id, user_id, exercise_id, set_number, reps, weight, duration, distance, rest_time, checked, created_at
			FROM exercise_set
			WHERE user_id = $1 AND exercise_id = $2
			ORDER BY created_at, set_number;`,
		userID, path.ExerciseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return rows2sets(rows)
}

func rows2sets(rows pgx.Rows) ([]Set, error) {
	var sets []Set
	for rows.Next() {
		var set Set
		if err := rows.Scan(
			&set.ID, &set.UserID, &set.ExerciseID, &set.SetNumber,
			&set.Reps, &set.Weight, &set.Duration, &set.Distance, &set.RestTime,
			&set.Checked, &set.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		sets = append(sets, set)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return sets, nil
}
