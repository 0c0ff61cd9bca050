// internal/repository/gateway.go
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultErrorWindow is how many recent forecast/actual pairs feed the error estimate.
const DefaultErrorWindow = 30

// Queries is the set of persistence operations available both inside and
// outside a transaction. Lookups that find nothing return a nil pointer and a
// nil error.
type Queries interface {
	// Catalog
	GetProduct(ctx context.Context, sku string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpsertProduct(ctx context.Context, p domain.Product) error
	// LockProduct serialises work on one SKU until the surrounding transaction ends.
	LockProduct(ctx context.Context, sku string) error

	// Forecasts
	GetForecast(ctx context.Context, sku string, date time.Time) (*domain.Forecast, error)
	UpsertForecast(ctx context.Context, f domain.Forecast) error
	ListForecasts(ctx context.Context, sku string, from, to time.Time) ([]domain.Forecast, error)
	RecentForecastActualPairs(ctx context.Context, sku string, limit int) ([]domain.ForecastActual, error)

	// Sales
	GetSale(ctx context.Context, sku string, date time.Time) (*domain.Sale, error)
	// RecordSale adds quantity into the (sku, date) aggregate row.
	RecordSale(ctx context.Context, sale domain.Sale) error
	ListSales(ctx context.Context, sku string, from, to time.Time) ([]domain.Sale, error)
	AverageDemand(ctx context.Context, sku string) (float64, error)

	// Batches
	// CreateBatch stores b and sets its ID. A second batch for the same
	// (sku, withdrawal_date) fails with domain.ErrBatchExists.
	CreateBatch(ctx context.Context, b *domain.Batch) error
	GetWithdrawal(ctx context.Context, sku string, date time.Time) (*domain.Batch, error)
	// ListOpenBatches returns non-terminal batches; an empty sku means every SKU.
	ListOpenBatches(ctx context.Context, sku string) ([]domain.Batch, error)
	// ListEligibleBatches returns sellable batches ordered surplus first, then
	// smaller net, then older withdrawal.
	ListEligibleBatches(ctx context.Context, sku string, date time.Time) ([]domain.Batch, error)
	ListBatches(ctx context.Context, sku string) ([]domain.Batch, error)
	UpdateBatch(ctx context.Context, id int64, net decimal.Decimal, status domain.BatchStatus, ageDays int) error

	// Run control
	GetRunControl(ctx context.Context, routine string) (*domain.RunControl, error)
	SetRunControl(ctx context.Context, routine string, date time.Time) error
	// ClaimRunControl records date for routine unless it is already recorded,
	// reporting whether this call made the claim.
	ClaimRunControl(ctx context.Context, routine string, date time.Time) (bool, error)
}

// Gateway is the storage backend used by the engine and the service layer.
type Gateway interface {
	Queries
	// RunInTx executes fn atomically; any error rolls back every write fn made.
	RunInTx(ctx context.Context, fn func(q Queries) error) error
	Close() error
}
