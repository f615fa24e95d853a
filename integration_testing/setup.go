package integration_testing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/config"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/workouts"
	testingpkg "github.com/justbuildstuff-dev/Fitness-App-sub005/pkg/testing"

	_ "github.com/lib/pq"
)

const (
	serverPort  = 9000
	metricsPort = 9002
	serverHost  = "localhost"

	testUserID    = "athlete-1"
	testJWTSecret = "integration-secret"
	testJWTIssuer = "fitness-app"
)

var serverEndpoint = fmt.Sprintf("http://%s:%d", serverHost, serverPort)

func getTestConfig(redisPort, postgresPort string) *config.Config {
	return &config.Config{
		Environment:      "development",
		Host:             serverHost,
		Port:             serverPort,
		MetricsPort:      metricsPort,
		LogLevel:         "debug",
		LogToStdout:      true,
		PostgresHost:     "localhost",
		PostgresPort:     postgresPort,
		PostgresDBName:   testingpkg.PostgresDB,
		RedisHost:        "localhost",
		RedisPort:        redisPort,
		CacheBackend:     "redis",
		CacheValidity:    time.Minute,
		FetchConcurrency: 4,
		Timezone:         "UTC",
		RateLimitPerMin:  1000,
		AllowedOrigins:   []string{"http://localhost:3000"},
		SessionTTL:       time.Hour,
		Secrets: config.Secrets{
			PostgresUser:     testingpkg.PostgresUser,
			PostgresPassword: testingpkg.PostgresPassword,
			JWTSecret:        testJWTSecret,
			JWTIssuer:        testJWTIssuer,
			OtelServiceName:  "fitness-analytics-test",
		},
	}
}

// seedDB applies the schema and logs one strength workout for the test user
// an hour before now.
func seedDB(ctx context.Context, db *sql.DB, now time.Time) error {
	if _, err := db.ExecContext(ctx, workouts.Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	loggedAt := now.Add(-time.Hour)
	statements := []struct {
		query string
		args  []interface{}
	}{
		{`INSERT INTO program (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)`,
			[]interface{}{"p1", testUserID, "Strength Block", loggedAt.AddDate(0, -1, 0)}},
		{`INSERT INTO program_week (id, user_id, program_id, name, week_order) VALUES ($1, $2, $3, $4, $5)`,
			[]interface{}{"w1", testUserID, "p1", "Week 1", 1}},
		{`INSERT INTO workout (id, user_id, program_id, week_id, name, day_of_week, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			[]interface{}{"wo1", testUserID, "p1", "w1", "Push", int(loggedAt.Weekday()), loggedAt}},
		{`INSERT INTO workout_exercise (id, user_id, program_id, week_id, workout_id, name, exercise_type, order_index) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			[]interface{}{"e1", testUserID, "p1", "w1", "wo1", "Bench Press", "strength", 0}},
		{`INSERT INTO exercise_set (id, user_id, exercise_id, set_number, reps, weight, checked, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			[]interface{}{"s1", testUserID, "e1", 1, 5, 80.0, true, loggedAt}},
		{`INSERT INTO exercise_set (id, user_id, exercise_id, set_number, reps, weight, checked, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			[]interface{}{"s2", testUserID, "e1", 2, 5, 90.0, true, loggedAt.Add(5 * time.Minute)}},
	}

	for _, s := range statements {
		if _, err := db.ExecContext(ctx, s.query, s.args...); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	return nil
}
