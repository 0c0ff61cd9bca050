// Package app assembles the gateway, engine and services shared by the
// server and the seed CLI.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/thawflow/internal/cache"
	"github.com/andresuchdata/thawflow/internal/config"
	"github.com/andresuchdata/thawflow/internal/engine"
	"github.com/andresuchdata/thawflow/internal/forecast"
	"github.com/andresuchdata/thawflow/internal/ingest"
	"github.com/andresuchdata/thawflow/internal/report"
	"github.com/andresuchdata/thawflow/internal/repository"
	"github.com/andresuchdata/thawflow/internal/repository/memory"
	"github.com/andresuchdata/thawflow/internal/repository/postgres"
	"github.com/andresuchdata/thawflow/internal/service"
	"github.com/andresuchdata/thawflow/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type App struct {
	Gateway   repository.Gateway
	Engine    *engine.Engine
	Inventory *service.InventoryService
	Imports   *service.ImportService
	Importer  *ingest.Importer
	Exporter  *report.Exporter
}

// OpenGateway connects the configured backend. Postgres schemas are
// migrated on open.
func OpenGateway(ctx context.Context, cfg *config.DatabaseConfig) (repository.Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendMemory:
		log.Warn().Msg("using in-memory store, data is lost on exit")
		return memory.New(), nil
	case BackendPostgres, "":
		db, err := postgres.NewDB(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return postgres.NewGateway(db), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// New wires every component from cfg. Cache and object storage fall back to
// no-ops when disabled or unreachable.
func New(ctx context.Context, cfg *config.Config, opts ...engine.Option) (*App, error) {
	params, err := engine.ParamsFromConfig(cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	gw, err := OpenGateway(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	summaryCache, err := cache.NewBatchSummaryCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("batch summary cache unavailable, continuing without it")
		summaryCache = cache.NewNoopBatchSummaryCache()
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Warn().Err(err).Msg("object storage unavailable, reports stay local")
		store = storage.Noop{}
	}

	eng := engine.New(gw, forecast.NewStoredProvider(gw), params, opts...)
	exporter := report.NewExporter(filepath.Join(cfg.App.DataDir, "reports"), cfg.Storage.Prefix, store)
	importer := ingest.NewImporter(gw)

	return &App{
		Gateway:   gw,
		Engine:    eng,
		Inventory: service.NewInventoryService(eng, gw, summaryCache, exporter),
		Imports:   service.NewImportService(importer, summaryCache),
		Importer:  importer,
		Exporter:  exporter,
	}, nil
}

func (a *App) Close() error {
	return a.Gateway.Close()
}
