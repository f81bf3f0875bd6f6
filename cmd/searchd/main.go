package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/osm-area-store/internal/app"
	"github.com/mohammed-shakir/osm-area-store/internal/core/config"
	"github.com/mohammed-shakir/osm-area-store/internal/core/server"
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
		Component: "searchd",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli, st, err := app.OpenStore(ctx, cfg)
	if err != nil {
		appLog.Error("store setup failed", "err", err)
		return 1
	}
	defer func() { _ = cli.Close() }()

	p := metrics.Init(metrics.Config{Enabled: cfg.Metrics, Version: Version})
	appLog.Info("starting search service", "addr", cfg.Addr, "version", Version, "h3_res", cfg.H3Res)

	h := server.NewHandler(appLog, server.Deps{
		Searcher: app.NewSearch(cfg, st, appLog),
		Store:    cli,
		Metrics:  p.Handler(),
	})
	if err := server.Run(ctx, cfg, appLog, h); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
