//go:build integration_test || all_tests

package workouts_test

import (
	"context"
	"testing"
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/db"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/workouts"
	testingpkg "github.com/justbuildstuff-dev/Fitness-App-sub005/pkg/testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPsqlStore(t *testing.T) {
	ctx := context.Background()
	pgPort := testingpkg.StartPostgres(t)

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		ConnString: testingpkg.PostgresConnString(pgPort),
		MaxConns:   4,
	})
	require.NoError(t, err)
	t.Cleanup(dbPool.Close)

	store := workouts.NewPsqlStore(dbPool)
	require.NoError(t, store.Migrate(ctx))
	// applying twice is fine
	require.NoError(t, store.Migrate(ctx))

	day := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	seed := []struct {
		query string
		args  []interface{}
	}{
		{`INSERT INTO program (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)`,
			[]interface{}{"p1", "u1", "Strength Block", day}},
		{`INSERT INTO program (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)`,
			[]interface{}{"p2", "u2", "Other", day}},
		{`INSERT INTO program_week (id, user_id, program_id, name, week_order) VALUES ($1, $2, $3, $4, $5)`,
			[]interface{}{"w2", "u1", "p1", "Week 2", 2}},
		{`INSERT INTO program_week (id, user_id, program_id, name, week_order) VALUES ($1, $2, $3, $4, $5)`,
			[]interface{}{"w1", "u1", "p1", "Week 1", 1}},
		{`INSERT INTO workout (id, user_id, program_id, week_id, name, day_of_week, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			[]interface{}{"wo1", "u1", "p1", "w1", "Push", 1, day}},
		{`INSERT INTO workout_exercise (id, user_id, program_id, week_id, workout_id, name, exercise_type, order_index) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			[]interface{}{"e1", "u1", "p1", "w1", "wo1", "Bench", "strength", 0}},
		{`INSERT INTO workout_exercise (id, user_id, program_id, week_id, workout_id, name, exercise_type, order_index) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			[]interface{}{"e2", "u1", "p1", "w1", "wo1", "Plank", "timeBased", 1}},
		{`INSERT INTO exercise_set (id, user_id, exercise_id, set_number, reps, weight, checked, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			[]interface{}{"s1", "u1", "e1", 1, 5, 100.0, true, day}},
		{`INSERT INTO exercise_set (id, user_id, exercise_id, set_number, duration, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			[]interface{}{"s2", "u1", "e2", 1, 60, day}},
	}
	for _, s := range seed {
		_, err := dbPool.Exec(ctx, s.query, s.args...)
		require.NoError(t, err, s.query)
	}

	programs, err := store.ListPrograms(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, "Strength Block", programs[0].Name)
	assert.True(t, day.Equal(programs[0].CreatedAt))

	weeks, err := store.ListWeeks(ctx, "u1", workouts.Path{ProgramID: "p1"})
	require.NoError(t, err)
	require.Len(t, weeks, 2)
	assert.Equal(t, "w1", weeks[0].ID)
	assert.Equal(t, 1, weeks[0].Order)

	// wrong user sees nothing
	weeks, err = store.ListWeeks(ctx, "u2", workouts.Path{ProgramID: "p1"})
	require.NoError(t, err)
	assert.Empty(t, weeks)

	wos, err := store.ListWorkouts(ctx, "u1", workouts.Path{ProgramID: "p1", WeekID: "w1"})
	require.NoError(t, err)
	require.Len(t, wos, 1)
	assert.Equal(t, 1, wos[0].DayOfWeek)

	exercises, err := store.ListExercises(ctx, "u1", workouts.Path{ProgramID: "p1", WeekID: "w1", WorkoutID: "wo1"})
	require.NoError(t, err)
	require.Len(t, exercises, 2)
	assert.Equal(t, workouts.ExerciseTypeStrength, exercises[0].ExerciseType)
	assert.Equal(t, workouts.ExerciseTypeTimeBased, exercises[1].ExerciseType)

	sets, err := store.ListSets(ctx, "u1", workouts.Path{ExerciseID: "e1"})
	require.NoError(t, err)
	require.Len(t, sets, 1)
	require.NotNil(t, sets[0].Reps)
	require.NotNil(t, sets[0].Weight)
	assert.Equal(t, 5, *sets[0].Reps)
	assert.Equal(t, 100.0, *sets[0].Weight)
	assert.Nil(t, sets[0].Duration)
	assert.True(t, sets[0].Checked)

	sets, err = store.ListSets(ctx, "u1", workouts.Path{ExerciseID: "e2"})
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Nil(t, sets[0].Reps)
	require.NotNil(t, sets[0].Duration)
	assert.Equal(t, 60, *sets[0].Duration)
}
