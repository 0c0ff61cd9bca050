package memory

import (
	"context"
	"time"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/shopspring/decimal"
)

// Outside a transaction every call takes mu for its own duration. Forecast
// reads and writes only need fmu.

func (g *Gateway) GetProduct(ctx context.Context, sku string) (*domain.Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (&view{g: g}).GetProduct(ctx, sku)
}

func (g *Gateway) ListProducts(ctx context.Context) ([]domain.Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (&view{g: g}).ListProducts(ctx)
}

func (g *Gateway) UpsertProduct(ctx context.Context, p domain.Product) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (&view{g: g}).UpsertProduct(ctx, p)
}

func (g *Gateway) LockProduct(ctx context.Context, sku string) error {
	return ctx.Err()
}

func (g *Gateway) GetForecast(ctx context.Context, sku string, date time.Time) (*domain.Forecast, error) {
	return (&view{g: g}).GetForecast(ctx, sku, date)
}

func (g *Gateway) UpsertForecast(ctx context.Context, f domain.Forecast) error {
	return (&view{g: g}).UpsertForecast(ctx, f)
}

func (g *Gateway) ListForecasts(ctx context.Context, sku string, from, to time.Time) ([]domain.Forecast, error) {
	return (&view{g: g}).ListForecasts(ctx, sku, from, to)
}

func (g *Gateway) RecentForecastActualPairs(ctx context.Context, sku string, limit int) ([]domain.ForecastActual, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (&view{g: g}).RecentForecastActualPairs(ctx, sku, limit)
}

func (g *Gateway) GetSale(ctx context.Context, sku string, date time.Time) (*domain.Sale, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (&view{g: g}).GetSale(ctx, sku, date)
}

func (g *Gateway) RecordSale(ctx context.Context, sale domain.Sale) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (&view{g: g}).RecordSale(ctx, sale)
}

func (g *Gateway) ListSales(ctx context.Context, sku string, from, to time.Time) ([]domain.Sale, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (&view{g: g}).ListSales(ctx, sku, from, to)
}

func (g *Gateway) AverageDemand(ctx context.Context, sku string) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (&view{g: g}).AverageDemand(ctx, sku)
}

func (g *Gateway) CreateBatch(ctx context.Context, b *domain.Batch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (&view{g: g}).CreateBatch(ctx, b)
}

func (g *Gateway) GetWithdrawal(ctx context.Context, sku string, date time.Time) (*domain.Batch, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (&view{g: g}).GetWithdrawal(ctx, sku, date)
}

func (g *Gateway) ListOpenBatches(ctx context.Context, sku string) ([]domain.Batch, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (&view{g: g}).ListOpenBatches(ctx, sku)
}

func (g *Gateway) ListEligibleBatches(ctx context.Context, sku string, date time.Time) ([]domain.Batch, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (&view{g: g}).ListEligibleBatches(ctx, sku, date)
}

func (g *Gateway) ListBatches(ctx context.Context, sku string) ([]domain.Batch, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (&view{g: g}).ListBatches(ctx, sku)
}

func (g *Gateway) UpdateBatch(ctx context.Context, id int64, net decimal.Decimal, status domain.BatchStatus, ageDays int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (&view{g: g}).UpdateBatch(ctx, id, net, status, ageDays)
}

func (g *Gateway) GetRunControl(ctx context.Context, routine string) (*domain.RunControl, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (&view{g: g}).GetRunControl(ctx, routine)
}

func (g *Gateway) SetRunControl(ctx context.Context, routine string, date time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (&view{g: g}).SetRunControl(ctx, routine, date)
}

func (g *Gateway) ClaimRunControl(ctx context.Context, routine string, date time.Time) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (&view{g: g}).ClaimRunControl(ctx, routine, date)
}
