package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func policy() domain.BatchPolicy {
	return domain.BatchPolicy{ShrinkFactor: decimal.NewFromFloat(0.85), ThawDays: 2, ShelfDays: 2}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	g := New()
	require.NoError(t, g.UpsertProduct(ctx, domain.Product{SKU: "A", Name: "A"}))

	boom := errors.New("boom")
	err := g.RunInTx(ctx, func(q repository.Queries) error {
		b, err := domain.NewBatch("A", decimal.NewFromInt(10), day0, policy())
		require.NoError(t, err)
		require.NoError(t, q.CreateBatch(ctx, &b))
		require.NoError(t, q.RecordSale(ctx, domain.Sale{ProductSKU: "A", Date: day0, Quantity: 3}))
		require.NoError(t, q.UpsertForecast(ctx, domain.Forecast{ProductSKU: "A", Date: day0, Quantity: 4}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	batches, err := g.ListBatches(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, batches)

	sale, err := g.GetSale(ctx, "A", day0)
	require.NoError(t, err)
	assert.Nil(t, sale)

	f, err := g.GetForecast(ctx, "A", day0)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestRunInTxRollbackKeepsOutsideForecastWrites(t *testing.T) {
	ctx := context.Background()
	g := New()
	require.NoError(t, g.UpsertForecast(ctx, domain.Forecast{ProductSKU: "A", Date: day0, Quantity: 10}))

	boom := errors.New("boom")
	err := g.RunInTx(ctx, func(q repository.Queries) error {
		require.NoError(t, q.UpsertForecast(ctx, domain.Forecast{ProductSKU: "A", Date: day0, Quantity: 11}))
		require.NoError(t, q.UpsertForecast(ctx, domain.Forecast{ProductSKU: "A", Date: day0, Quantity: 12}))
		// forecasts are writable outside the open transaction
		require.NoError(t, g.UpsertForecast(ctx, domain.Forecast{ProductSKU: "B", Date: day0, Quantity: 7}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	f, err := g.GetForecast(ctx, "A", day0)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, 10.0, f.Quantity)

	f, err = g.GetForecast(ctx, "B", day0)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, 7.0, f.Quantity)
}

func TestCreateBatchRejectsDuplicateWithdrawal(t *testing.T) {
	ctx := context.Background()
	g := New()

	first, _ := domain.NewBatch("A", decimal.NewFromInt(10), day0, policy())
	require.NoError(t, g.CreateBatch(ctx, &first))
	assert.Equal(t, int64(1), first.ID)

	second, _ := domain.NewBatch("A", decimal.NewFromInt(5), day0, policy())
	err := g.CreateBatch(ctx, &second)
	assert.ErrorIs(t, err, domain.ErrBatchExists)
}

func TestRecordSaleAggregatesPerDay(t *testing.T) {
	ctx := context.Background()
	g := New()

	require.NoError(t, g.RecordSale(ctx, domain.Sale{ProductSKU: "A", Date: day0, Quantity: 2}))
	require.NoError(t, g.RecordSale(ctx, domain.Sale{ProductSKU: "A", Date: day0.Add(5 * time.Hour), Quantity: 3}))
	require.NoError(t, g.RecordSale(ctx, domain.Sale{ProductSKU: "A", Date: day0.AddDate(0, 0, 1), Quantity: 7}))

	sales, err := g.ListSales(ctx, "A", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, 5.0, sales[0].Quantity)
	assert.Equal(t, 7.0, sales[1].Quantity)

	avg, err := g.AverageDemand(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 6.0, avg)
}

func TestClaimRunControlOncePerDay(t *testing.T) {
	ctx := context.Background()
	g := New()

	ok, err := g.ClaimRunControl(ctx, "daily_flow", day0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.ClaimRunControl(ctx, "daily_flow", day0)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = g.ClaimRunControl(ctx, "daily_flow", day0.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRecentForecastActualPairsNewestFirst(t *testing.T) {
	ctx := context.Background()
	g := New()

	for i := 0; i < 5; i++ {
		d := day0.AddDate(0, 0, i)
		require.NoError(t, g.UpsertForecast(ctx, domain.Forecast{ProductSKU: "A", Date: d, Quantity: 10}))
		require.NoError(t, g.RecordSale(ctx, domain.Sale{ProductSKU: "A", Date: d, Quantity: float64(10 + i)}))
	}
	// forecast without a matching sale is not a pair
	require.NoError(t, g.UpsertForecast(ctx, domain.Forecast{ProductSKU: "A", Date: day0.AddDate(0, 0, 9), Quantity: 10}))

	pairs, err := g.RecentForecastActualPairs(ctx, "A", 3)
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	assert.Equal(t, day0.AddDate(0, 0, 4), pairs[0].Date)
	assert.Equal(t, 4.0, pairs[0].Error())
}
