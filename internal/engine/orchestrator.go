package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/forecast"
	"github.com/andresuchdata/thawflow/internal/repository"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type Engine struct {
	gw        repository.Gateway
	forecasts forecast.Provider
	params    Params
	now       func() time.Time
}

type Option func(*Engine)

// WithClock replaces time.Now as the source of the business date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(gw repository.Gateway, forecasts forecast.Provider, params Params, opts ...Option) *Engine {
	e := &Engine{
		gw:        gw,
		forecasts: forecasts,
		params:    params,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Params() Params { return e.params }

// Today is the current business date.
func (e *Engine) Today() time.Time {
	return e.params.Today(e.now())
}

// DailyResult is the outcome of the daily flow for one SKU.
type DailyResult struct {
	SKU        string           `json:"sku"`
	Date       time.Time        `json:"date"`
	Lifecycle  *LifecycleReport `json:"lifecycle"`
	Withdrawal Withdrawal       `json:"withdrawal"`
	Batch      domain.Batch     `json:"batch"`
}

// SKUFailure records a SKU the catalog run had to skip.
type SKUFailure struct {
	SKU   string `json:"sku"`
	Error string `json:"error"`
}

// RunReport summarises a catalog-wide daily run.
type RunReport struct {
	Date     time.Time     `json:"date"`
	Routine  string        `json:"routine"`
	Results  []DailyResult `json:"results"`
	Failures []SKUFailure  `json:"failures"`
}

func requireProduct(ctx context.Context, q repository.Queries, sku string) error {
	if err := q.LockProduct(ctx, sku); err != nil {
		return err
	}
	p, err := q.GetProduct(ctx, sku)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: %s", domain.ErrUnknownProduct, sku)
	}
	return nil
}

// RunDaily advances the SKU's batches, computes today's withdrawal and
// records it as a new batch, all in one transaction.
func (e *Engine) RunDaily(ctx context.Context, sku string, today time.Time) (*DailyResult, error) {
	today = domain.Day(today)
	result := &DailyResult{SKU: sku, Date: today}

	err := e.gw.RunInTx(ctx, func(q repository.Queries) error {
		if err := requireProduct(ctx, q, sku); err != nil {
			return err
		}

		lifecycle, err := e.advance(ctx, q, sku, today)
		if err != nil {
			return err
		}
		result.Lifecycle = lifecycle

		w, err := e.ComputeWithdrawal(ctx, q, sku, today)
		if err != nil {
			return err
		}
		result.Withdrawal = w

		batch, err := domain.NewBatch(sku, w.Gross(), today, e.params.BatchPolicy())
		if err != nil {
			return err
		}
		if err := q.CreateBatch(ctx, &batch); err != nil {
			return err
		}
		result.Batch = batch
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("daily run for %s: %w", sku, err)
	}

	log.Info().
		Str("sku", sku).
		Str("date", today.Format(domain.DateLayout)).
		Float64("forecast", result.Withdrawal.Forecast).
		Bool("fallback", result.Withdrawal.ForecastFallback).
		Float64("sigma", result.Withdrawal.Sigma).
		Str("gross", result.Batch.GrossQuantity.String()).
		Str("net", result.Batch.NetQuantity.String()).
		Msg("withdrawal recorded")
	return result, nil
}

// RunDailyAllSkus runs the daily flow for every catalog SKU at most once per
// day. A SKU that fails is reported and skipped; the others still run.
// Cancelling ctx after the day is claimed does not stop the run.
func (e *Engine) RunDailyAllSkus(ctx context.Context, today time.Time) (*RunReport, error) {
	today = domain.Day(today)
	report := &RunReport{Date: today, Routine: e.params.RoutineName}

	products, err := e.gw.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	claimed, err := e.gw.ClaimRunControl(ctx, e.params.RoutineName, today)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("%w: %s on %s", domain.ErrAlreadyRunToday,
			e.params.RoutineName, today.Format(domain.DateLayout))
	}
	// once the day is claimed the fan-out runs to completion even if the
	// caller goes away
	runCtx := context.WithoutCancel(ctx)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(e.params.Workers)

	for _, p := range products {
		sku := p.SKU
		g.Go(func() error {
			res, err := e.RunDaily(runCtx, sku, today)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Error().Err(err).Str("sku", sku).Msg("daily run failed, skipping sku")
				report.Failures = append(report.Failures, SKUFailure{SKU: sku, Error: err.Error()})
				return nil
			}
			report.Results = append(report.Results, *res)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Results, func(i, j int) bool { return report.Results[i].SKU < report.Results[j].SKU })
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].SKU < report.Failures[j].SKU })

	log.Info().
		Str("routine", e.params.RoutineName).
		Str("date", today.Format(domain.DateLayout)).
		Int("succeeded", len(report.Results)).
		Int("failed", len(report.Failures)).
		Msg("daily routine finished")
	return report, nil
}

// RegisterSale records a sale of qty kg of sku on date and allocates it.
func (e *Engine) RegisterSale(ctx context.Context, sku string, date time.Time, qty float64) (Allocation, error) {
	if qty < 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return Allocation{}, fmt.Errorf("%w: %v", domain.ErrInvalidQuantity, qty)
	}
	date = domain.Day(date)

	var alloc Allocation
	err := e.gw.RunInTx(ctx, func(q repository.Queries) error {
		if err := requireProduct(ctx, q, sku); err != nil {
			return err
		}
		if err := q.RecordSale(ctx, domain.Sale{ProductSKU: sku, Date: date, Quantity: qty}); err != nil {
			return err
		}
		var err error
		alloc, err = e.Allocate(ctx, q, sku, date, decimal.NewFromFloat(qty))
		return err
	})
	if err != nil {
		return Allocation{}, fmt.Errorf("register sale for %s: %w", sku, err)
	}
	return alloc, nil
}
