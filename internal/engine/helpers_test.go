package engine

import (
	"context"
	"testing"
	"time"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/forecast"
	"github.com/andresuchdata/thawflow/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, skus ...string) (*Engine, *memory.Gateway) {
	t.Helper()
	gw := memory.New()
	for _, sku := range skus {
		require.NoError(t, gw.UpsertProduct(context.Background(), domain.Product{SKU: sku, Name: "Product " + sku}))
	}
	e := New(gw, forecast.NewStoredProvider(gw), DefaultParams(), WithClock(func() time.Time { return day0 }))
	return e, gw
}

// seedBatch stores a batch withdrawn on day with the given status and net.
func seedBatch(t *testing.T, gw *memory.Gateway, sku string, day time.Time, gross, net string, status domain.BatchStatus) domain.Batch {
	t.Helper()
	ctx := context.Background()
	b, err := domain.NewBatch(sku, decimal.RequireFromString(gross), day, DefaultParams().BatchPolicy())
	require.NoError(t, err)
	require.NoError(t, gw.CreateBatch(ctx, &b))
	b.NetQuantity = decimal.RequireFromString(net)
	b.Status = status
	require.NoError(t, gw.UpdateBatch(ctx, b.ID, b.NetQuantity, b.Status, b.AgeDays))
	return b
}

func batchByID(t *testing.T, gw *memory.Gateway, sku string, id int64) domain.Batch {
	t.Helper()
	batches, err := gw.ListBatches(context.Background(), sku)
	require.NoError(t, err)
	for _, b := range batches {
		if b.ID == id {
			return b
		}
	}
	t.Fatalf("batch %d not found", id)
	return domain.Batch{}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}
