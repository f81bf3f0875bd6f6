// Package app assembles the importer and the search service from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/osm-area-store/internal/classify"
	"github.com/mohammed-shakir/osm-area-store/internal/core/config"
	"github.com/mohammed-shakir/osm-area-store/internal/entity"
	"github.com/mohammed-shakir/osm-area-store/internal/footprint"
	h3mapper "github.com/mohammed-shakir/osm-area-store/internal/mapper/h3"
	"github.com/mohammed-shakir/osm-area-store/internal/pipeline"
	"github.com/mohammed-shakir/osm-area-store/internal/search"
	"github.com/mohammed-shakir/osm-area-store/internal/store"
	"github.com/mohammed-shakir/osm-area-store/internal/store/redisstore"
	"github.com/mohammed-shakir/osm-area-store/internal/zone"
)

// OpenStore connects to redis and wraps the client in the entity store and cell index.
func OpenStore(ctx context.Context, cfg config.Config) (*redisstore.Client, *store.Store, error) {
	dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cli, err := redisstore.New(dctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}
	return cli, store.NewRedisStore(cli, h3mapper.New(), cfg.H3Res, cfg.EntityTTL), nil
}

// NewImporter fails when the polygon rule table cannot be loaded.
func NewImporter(cfg config.Config, w pipeline.EntityWriter, log *slog.Logger) (*pipeline.Importer, error) {
	cls, err := classify.FromFile(cfg.PolygonRulesPath)
	if err != nil {
		return nil, fmt.Errorf("polygon rules: %w", err)
	}
	table := entity.DefaultTable()
	poly := footprint.New(zone.NewResolver(cfg.ZoneCacheSize), table, footprint.Options{
		QuadSegs:        cfg.BufferQuadSegs,
		WidthIsDiameter: cfg.FootprintWidthIsDiameter,
		Logger:          log,
	})
	return pipeline.New(pipeline.Config{
		CheckGeometries: cfg.CheckGeometries,
		WayCacheSize:    cfg.WayCacheSize,
	}, cls, table, entity.DefaultTranslator(), poly, w, log), nil
}

func NewSearch(cfg config.Config, src search.CandidateSource, log *slog.Logger) *search.Service {
	return search.NewService(
		src,
		entity.DefaultTable(),
		search.NewFilter(zone.NewResolver(cfg.ZoneCacheSize)),
		search.DefaultRoadPreference(cfg.AvoidFootways),
		log,
	)
}
