package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/config"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/logging"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// set at build time: -ldflags "-X main.version=$(git rev-parse HEAD)"
var version = "dev"

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	metricsPort := flag.Int("metrics-port", 9003, "port for the consumer metrics endpoint")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, *env, *configPath)
	if err != nil {
		panic(err)
	}

	flush := logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    cfg.LogFormatJSON,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        cfg.Secrets.SentryDSN,
		SentryServerName: "analytics-consumer",
	})
	defer flush()

	consumer, err := internal.NewEventConsumer(ctx, cfg, version)
	if err != nil {
		log.Fatalf("new event consumer: %s", err)
	}

	metricsAddr := net.JoinHostPort(cfg.Host, strconv.Itoa(*metricsPort))
	metricsSrv := &http.Server{
		Addr:              metricsAddr,
		Handler:           promhttp.HandlerFor(consumer.PromRegistry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Debugf(" > consumer metrics listening on: [%s]", metricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %s", err)
		}
	}()

	if err := consumer.Run(ctx); err != nil {
		log.Errorf("consumer stopped: %s", err)
	}
	log.Warnln("consumer shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("metrics server shutdown: %s", err)
	}
	if err := consumer.Close(); err != nil {
		log.Errorf("close consumer: %s", err)
	}
}
