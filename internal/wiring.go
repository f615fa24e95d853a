package internal

import (
	"context"
	"fmt"
	"net"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/analytics"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/cache"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/config"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/db"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/telemetry/metrics"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/workouts"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

const cacheNamespace = "fitness-analytics"

func newDBPool(ctx context.Context, cfg *config.Config, appName string) (*pgxpool.Pool, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		ConnString:      cfg.PostgresConnString(),
		MaxConns:        int32(cfg.FetchConcurrency * 2),
		ApplicationName: appName,
		TracingEnabled:  cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	return dbPool, nil
}

func newRedisClient(ctx context.Context, cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: cfg.Secrets.RedisPassword,
		DB:       0, // use default DB
	})
	if cfg.TracingEnabled {
		rdb.AddHook(redisotel.NewTracingHook())
	}

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	return rdb
}

func cacheOptions(cfg *config.Config, rdb redis.Cmdable) cache.Options {
	opts := cache.Options{
		Backend:   cfg.CacheBackend,
		Validity:  cfg.CacheValidity,
		Redis:     rdb,
		Namespace: cacheNamespace,
	}
	if cfg.CacheBackend == cache.BackendFreecache {
		opts.Free = freecache.NewCache(cfg.FreecacheSizeMB * 1024 * 1024)
	}
	return opts
}

// newEngine builds the analytics engine on top of the postgres record store.
func newEngine(
	cfg *config.Config,
	dbPool *pgxpool.Pool,
	rdb redis.Cmdable,
	metricsManager *metrics.Manager,
) (*analytics.Engine, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	caches, err := analytics.NewCaches(cacheOptions(cfg, rdb))
	if err != nil {
		return nil, fmt.Errorf("new caches: %w", err)
	}
	log.Debugf("analytics cache backend: %s, validity: %s", cfg.CacheBackend, cfg.CacheValidity)

	return analytics.NewEngine(
		workouts.NewPsqlStore(dbPool),
		caches,
		metricsManager,
		analytics.Config{
			FetchConcurrency:       cfg.FetchConcurrency,
			Location:               loc,
			PrefetchAdjacentMonths: cfg.PrefetchAdjacentMonths,
			Validity:               cfg.CacheValidity,
		},
	), nil
}

// ClearSharedCache drops every user's snapshots from the redis backend.
// The other backends live inside one process and cannot be cleared from
// outside it.
func ClearSharedCache(ctx context.Context, cfg *config.Config) error {
	if cfg.CacheBackend != cache.BackendRedis {
		return fmt.Errorf("clear cache: backend [%s] is local to the service process", cfg.CacheBackend)
	}
	rdb := newRedisClient(ctx, cfg)
	defer func() {
		_ = rdb.Close()
	}()
	return clearSharedCache(ctx, cfg, rdb)
}

func clearSharedCache(ctx context.Context, cfg *config.Config, rdb redis.Cmdable) error {
	caches, err := analytics.NewCaches(cacheOptions(cfg, rdb))
	if err != nil {
		return fmt.Errorf("new caches: %w", err)
	}
	return caches.Clear(ctx)
}
