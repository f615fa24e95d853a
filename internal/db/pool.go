package db

import (
	"context"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultApplicationName   = "fitness-analytics"
	defaultHealthCheckPeriod = 30 * time.Second
)

type NewDBPoolParams struct {
	ConnString string
	// MaxConns bounds the pool; the analytics fan-out is sized against it.
	MaxConns        int32
	ApplicationName string
	TracingEnabled  bool
}

// NewDBPool returns a lazily connecting pool. The store is read-only, so
// connections are tagged with an application name to make them easy to spot
// in pg_stat_activity.
func NewDBPool(ctx context.Context, params NewDBPoolParams) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(params.ConnString)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	if params.MaxConns > 0 {
		poolConfig.MaxConns = params.MaxConns
	}
	poolConfig.HealthCheckPeriod = defaultHealthCheckPeriod

	appName := params.ApplicationName
	if appName == "" {
		appName = defaultApplicationName
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = appName

	if params.TracingEnabled {
		poolConfig.ConnConfig.Tracer = otelpgx.NewTracer(otelpgx.WithIncludeQueryParameters())
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	return pool, nil
}
