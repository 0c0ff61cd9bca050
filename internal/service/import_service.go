package service

import (
	"context"
	"io"

	"github.com/andresuchdata/thawflow/internal/cache"
	"github.com/andresuchdata/thawflow/internal/ingest"
	"github.com/rs/zerolog/log"
)

// Importer loads CSV exports into the store.
type Importer interface {
	ImportSales(ctx context.Context, r io.Reader) (ingest.Result, error)
	ImportForecasts(ctx context.Context, r io.Reader) (ingest.Result, error)
}

// ImportService loads uploaded files and drops cached summaries they affect.
type ImportService struct {
	importer Importer
	cache    cache.BatchSummaryCache
}

func NewImportService(importer Importer, cacheImpl cache.BatchSummaryCache) *ImportService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopBatchSummaryCache()
	}
	return &ImportService{importer: importer, cache: cacheImpl}
}

func (s *ImportService) ImportSales(ctx context.Context, r io.Reader) (ingest.Result, error) {
	res, err := s.importer.ImportSales(ctx, r)
	if err != nil {
		return res, err
	}
	s.invalidate(ctx, res)
	return res, nil
}

func (s *ImportService) ImportForecasts(ctx context.Context, r io.Reader) (ingest.Result, error) {
	res, err := s.importer.ImportForecasts(ctx, r)
	if err != nil {
		return res, err
	}
	s.invalidate(ctx, res)
	return res, nil
}

func (s *ImportService) invalidate(ctx context.Context, res ingest.Result) {
	if res.Imported == 0 && res.ProductsCreated == 0 {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("import: cache invalidate failed")
	}
}
