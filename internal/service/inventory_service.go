package service

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/thawflow/internal/cache"
	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/engine"
	"github.com/andresuchdata/thawflow/internal/repository"
	"github.com/rs/zerolog/log"
)

const defaultHistoryDays = 14

// ReportExporter publishes the outcome of a catalog run.
type ReportExporter interface {
	Export(ctx context.Context, r *engine.RunReport) (string, error)
}

type InventoryService struct {
	engine   *engine.Engine
	gw       repository.Gateway
	cache    cache.BatchSummaryCache
	exporter ReportExporter
}

func NewInventoryService(eng *engine.Engine, gw repository.Gateway, cacheImpl cache.BatchSummaryCache, exporter ReportExporter) *InventoryService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopBatchSummaryCache()
	}
	return &InventoryService{engine: eng, gw: gw, cache: cacheImpl, exporter: exporter}
}

func (s *InventoryService) Today() time.Time {
	return s.engine.Today()
}

func (s *InventoryService) invalidate(ctx context.Context, sku string) {
	var err error
	if sku == "" {
		err = s.cache.InvalidateAll(ctx)
	} else {
		err = s.cache.InvalidateSKU(ctx, sku)
	}
	if err != nil {
		log.Warn().Err(err).Str("sku", sku).Msg("inventory: cache invalidate failed")
	}
}

// TriggerWithdrawal runs today's flow for one SKU.
func (s *InventoryService) TriggerWithdrawal(ctx context.Context, sku string) (*engine.DailyResult, error) {
	res, err := s.engine.RunDaily(ctx, sku, s.Today())
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, sku)
	return res, nil
}

// GetBatches returns the SKU's batches with dashboard aggregates and the
// sales and forecast series around today.
func (s *InventoryService) GetBatches(ctx context.Context, sku string, historyDays int) (*domain.BatchSummary, error) {
	if historyDays <= 0 {
		historyDays = defaultHistoryDays
	}
	today := s.Today()
	q := cache.SummaryQuery{SKU: sku, AsOf: today, HistoryDays: historyDays}

	if summary, ok, err := s.cache.GetSummary(ctx, q); err == nil && ok {
		return summary, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("inventory: cache get summary failed")
	}

	product, err := s.gw.GetProduct(ctx, sku)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProduct, sku)
	}

	batches, err := s.gw.ListBatches(ctx, sku)
	if err != nil {
		return nil, err
	}
	if batches == nil {
		batches = make([]domain.Batch, 0)
	}

	from := domain.AddDays(today, -historyDays)
	sales, err := s.gw.ListSales(ctx, sku, from, today)
	if err != nil {
		return nil, err
	}
	if sales == nil {
		sales = make([]domain.Sale, 0)
	}

	forecasts, err := s.gw.ListForecasts(ctx, sku, from, domain.AddDays(today, s.engine.Params().ForecastLeadDays))
	if err != nil {
		return nil, err
	}
	if forecasts == nil {
		forecasts = make([]domain.Forecast, 0)
	}

	accuracy, err := s.engine.ForecastAccuracy(ctx, s.gw, sku)
	if err != nil {
		return nil, err
	}

	totals, counts := domain.SummarizeBatches(batches, s.engine.Params().BatchPolicy().ShrinkFactor)
	summary := &domain.BatchSummary{
		Product:      *product,
		AsOf:         today,
		Batches:      batches,
		Totals:       totals,
		StatusCounts: counts,
		RecentSales:  sales,
		Forecasts:    forecasts,
		Accuracy:     accuracy,
	}

	if err := s.cache.SetSummary(ctx, q, summary); err != nil {
		log.Warn().Err(err).Msg("inventory: cache set summary failed")
	}
	return summary, nil
}

// RegisterSale records a sale and allocates it. A zero date means today.
func (s *InventoryService) RegisterSale(ctx context.Context, sku string, date time.Time, qty float64) (engine.Allocation, error) {
	if date.IsZero() {
		date = s.Today()
	}
	alloc, err := s.engine.RegisterSale(ctx, sku, date, qty)
	if err != nil {
		return engine.Allocation{}, err
	}
	s.invalidate(ctx, sku)
	return alloc, nil
}

// RunDailyAllSkus runs today's flow for the catalog and exports the report.
// An export failure is logged; the run itself already committed.
func (s *InventoryService) RunDailyAllSkus(ctx context.Context) (*engine.RunReport, error) {
	report, err := s.engine.RunDailyAllSkus(ctx, s.Today())
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, "")

	if s.exporter != nil {
		if _, err := s.exporter.Export(ctx, report); err != nil {
			log.Warn().Err(err).Msg("inventory: daily report export failed")
		}
	}
	return report, nil
}

// AdvanceLifecycle moves every open batch forward as of today.
func (s *InventoryService) AdvanceLifecycle(ctx context.Context) (*engine.LifecycleReport, error) {
	report, err := s.engine.AdvanceDaily(ctx, s.Today())
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, "")
	return report, nil
}
