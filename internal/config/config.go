package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/cache"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	defaultCacheValidity    = 5 * time.Minute
	defaultFetchConcurrency = 8
	defaultFreecacheSizeMB  = 64
	defaultRateLimitPerMin  = 120
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	MetricsPort int    `toml:"metrics_port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// analytics
	CacheBackend           string        `toml:"cache_backend"`
	CacheValidity          time.Duration `toml:"cache_validity"`
	FreecacheSizeMB        int           `toml:"freecache_size_mb"`
	FetchConcurrency       int           `toml:"fetch_concurrency"`
	Timezone               string        `toml:"timezone"`
	PrefetchAdjacentMonths bool          `toml:"prefetch_adjacent_months"`

	// http
	RateLimitPerMin int           `toml:"rate_limit_per_min"`
	AllowedOrigins  []string      `toml:"allowed_origins"`
	SessionTTL      time.Duration `toml:"session_ttl"`

	// kafka
	KafkaBrokers      []string `toml:"kafka_brokers"`
	KafkaTopic        string   `toml:"kafka_topic"`
	KafkaGroupID      string   `toml:"kafka_group_id"`
	KafkaRecordsTopic string   `toml:"kafka_records_topic"`

	TracingEnabled bool `toml:"tracing_enabled"`

	Secrets Secrets `toml:"-"`
}

// Secrets never live in the config file.
type Secrets struct {
	RedisPassword    string `env:"FITNESS_REDIS_PASS"`
	PostgresUser     string `env:"FITNESS_DB_USER, default=postgres"`
	PostgresPassword string `env:"FITNESS_DB_PASS"`
	JWTSecret        string `env:"FITNESS_JWT_SECRET"`
	JWTIssuer        string `env:"FITNESS_JWT_ISSUER"`
	SentryDSN        string `env:"SENTRY_DSN"`
	HoneycombAPIKey  string `env:"HONEYCOMB_API_KEY"`
	OtelServiceName  string `env:"OTEL_SERVICE_NAME, default=fitness-analytics"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config for env: %s", env)
	}
	return cfg, nil
}

// Load reads the env table from the TOML file at path, then fills secrets
// from the environment. A .env file next to the binary is loaded first if
// present; variables already set win over it.
func Load(ctx context.Context, env, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return load(ctx, env, path, envconfig.OsLookuper())
}

func load(ctx context.Context, env, path string, lookuper envconfig.Lookuper) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg.Secrets,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.CacheBackend == "" {
		c.CacheBackend = cache.BackendMemory
	}
	if c.CacheValidity <= 0 {
		c.CacheValidity = defaultCacheValidity
	}
	if c.FreecacheSizeMB <= 0 {
		c.FreecacheSizeMB = defaultFreecacheSizeMB
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = defaultFetchConcurrency
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.RateLimitPerMin <= 0 {
		c.RateLimitPerMin = defaultRateLimitPerMin
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 7 * 24 * time.Hour
	}
}

func (c *Config) validate() error {
	switch c.CacheBackend {
	case cache.BackendMemory, cache.BackendFreecache, cache.BackendRedis:
	default:
		return fmt.Errorf("unknown cache backend: %s", c.CacheBackend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Port <= 0 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

// Location is the time zone calendar days are counted in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) PostgresConnString() string {
	userInfo := c.Secrets.PostgresUser
	if c.Secrets.PostgresPassword != "" {
		userInfo += ":" + c.Secrets.PostgresPassword
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s", userInfo, c.PostgresHost, c.PostgresPort, c.PostgresDBName)
}
