// Command import-worker runs imports requested on the kafka job topic.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/osm-area-store/internal/app"
	"github.com/mohammed-shakir/osm-area-store/internal/core/config"
	"github.com/mohammed-shakir/osm-area-store/internal/core/health"
	"github.com/mohammed-shakir/osm-area-store/internal/jobs"
	"github.com/mohammed-shakir/osm-area-store/internal/jobs/kafkaconsumer"
	"github.com/mohammed-shakir/osm-area-store/internal/logger"
	"github.com/mohammed-shakir/osm-area-store/internal/metrics"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load(".env")
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Component: "import_worker",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	if !cfg.Kafka.Enabled {
		appLog.Error("KAFKA_ENABLED is false, nothing to consume")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli, st, err := app.OpenStore(ctx, cfg)
	if err != nil {
		appLog.Error("store setup failed", "err", err)
		return 1
	}
	defer func() { _ = cli.Close() }()

	im, err := app.NewImporter(cfg, st, appLog)
	if err != nil {
		appLog.Error("importer setup failed", "err", err)
		return 1
	}

	consumer := kafkaconsumer.New(kafkaconsumer.FromConfig(cfg.Kafka), appLog, jobs.NewRunner(im, appLog), cli)
	if err := consumer.Start(ctx); err != nil {
		appLog.Error("consumer start failed", "err", err)
		return 1
	}
	defer consumer.Stop()

	p := metrics.Init(metrics.Config{Enabled: cfg.Metrics, Version: Version})
	r := chi.NewRouter()
	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Worker(cfg.Kafka.Topic, consumer, cli))
	r.Method(http.MethodGet, "/metrics", p.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	appLog.Info("import worker running", "addr", cfg.Addr, "topic", cfg.Kafka.Topic, "version", Version)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("http server exited", "err", err)
		return 1
	}
	return 0
}
