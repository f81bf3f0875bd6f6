// Command importer loads one OSM dataset into the store for an area.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/osm-area-store/internal/app"
	"github.com/mohammed-shakir/osm-area-store/internal/core/config"
	"github.com/mohammed-shakir/osm-area-store/internal/core/observability"
	"github.com/mohammed-shakir/osm-area-store/internal/logger"
	"github.com/mohammed-shakir/osm-area-store/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	file := flag.String("file", "", "OSM dataset to import (.osm or .osm.pbf)")
	pbf := flag.Bool("pbf", false, "force the PBF reader regardless of the file extension")
	area := flag.String("area", "", "area name the entities are stored under")
	env := flag.String("env", ".env", "optional env file")
	flag.Parse()

	_ = godotenv.Load(*env)
	if *file == "" || *area == "" {
		fmt.Fprintln(os.Stderr, "usage: importer -file <dataset> -area <name> [-pbf]")
		return 2
	}
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Area:      *area,
		Component: "importer",
	}, os.Stderr)
	appLog := logger.NewSlog(&zl)
	observability.SetArea(*area)

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

	format := ""
	if *pbf {
		format = string(pipeline.FormatPBF)
	}
	sc, err := pipeline.Open(ctx, *file, format)
	if err != nil {
		appLog.Error("open dataset", "file", *file, "err", err)
		return 1
	}
	defer func() { _ = sc.Close() }()

	stats, err := im.Run(ctx, *area, sc)
	if err != nil {
		appLog.Error("import failed", "err", err)
		return 1
	}
	fmt.Printf("seen=%d stored=%d skipped=%d polygonized=%d degenerate_buffers=%d invalid=%d\n",
		stats.Seen, stats.Stored, stats.Skipped, stats.Polygonized, stats.DegenerateBuffers, stats.InvalidGeometries)
	return 0
}
