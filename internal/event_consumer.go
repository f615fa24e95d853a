package internal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/analytics"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/config"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/events"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/telemetry/metrics"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/telemetry/tracing"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// EventConsumer keeps the analytics caches of a shared redis backend in step
// with sets logged through the workout app.
type EventConsumer struct {
	reader  *kafka.Reader
	writer  *kafka.Writer
	engine  *analytics.Engine
	dbPool  *pgxpool.Pool
	rdb     *redis.Client
	handler *events.Consumer

	MetricsManager *metrics.Manager
	PromRegistry   *prometheus.Registry
	otelShutdown   func()
}

func NewEventConsumer(ctx context.Context, cfg *config.Config, versionInfo string) (*EventConsumer, error) {
	if len(cfg.KafkaBrokers) == 0 || cfg.KafkaTopic == "" || cfg.KafkaGroupID == "" {
		return nil, errors.New("kafka brokers, topic and group id must be set")
	}

	dbPool, err := newDBPool(ctx, cfg, "fitness-consumer")
	if err != nil {
		return nil, err
	}

	promRegistry := metrics.SetupPrometheus(versionInfo)
	metricsManager := metrics.NewManager("fitness", "consumer", promRegistry)

	rdb := newRedisClient(ctx, cfg)

	otelShutdown, err := tracing.HoneycombSetup(cfg.TracingEnabled, cfg.Secrets.OtelServiceName+"-consumer")
	if err != nil {
		return nil, err
	}

	engine, err := newEngine(cfg, dbPool, rdb, metricsManager)
	if err != nil {
		return nil, fmt.Errorf("new analytics engine: %w", err)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.KafkaGroupID,
		Topic:           cfg.KafkaTopic,
		MinBytes:        1,
		MaxBytes:        10e6,
		MaxWait:         time.Second,
		ReadLagInterval: -1,
	})

	var writer *kafka.Writer
	if cfg.KafkaRecordsTopic != "" {
		writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.KafkaRecordsTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		}
	}

	c := &EventConsumer{
		reader:         reader,
		writer:         writer,
		engine:         engine,
		dbPool:         dbPool,
		rdb:            rdb,
		MetricsManager: metricsManager,
		PromRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}
	if writer != nil {
		c.handler = events.NewConsumer(reader, engine, metricsManager, writer)
	} else {
		// a nil *kafka.Writer in the interface would not compare equal to nil
		c.handler = events.NewConsumer(reader, engine, metricsManager, nil)
	}
	return c, nil
}

// Run blocks until ctx is cancelled.
func (c *EventConsumer) Run(ctx context.Context) error {
	log.Infof("consumer started (topic=%s, group=%s)", c.reader.Config().Topic, c.reader.Config().GroupID)
	c.MetricsManager.GaugeLifeSignal.Set(1)
	defer c.MetricsManager.GaugeLifeSignal.Set(0)

	err := c.handler.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *EventConsumer) Close() error {
	c.engine.Wait()

	var err error
	err = multierr.Append(err, c.reader.Close())
	if c.writer != nil {
		err = multierr.Append(err, c.writer.Close())
	}
	c.otelShutdown()
	err = multierr.Append(err, c.rdb.Close())
	c.dbPool.Close()
	return err
}
