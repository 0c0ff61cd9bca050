package engine

import (
	"context"
	"testing"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderForAllocation(t *testing.T) {
	batches := []domain.Batch{
		{ID: 1, Status: domain.StatusAvailable, NetQuantity: decimal.NewFromInt(5), WithdrawalDate: day0},
		{ID: 2, Status: domain.StatusSurplus, NetQuantity: decimal.NewFromInt(30), WithdrawalDate: day0},
		{ID: 3, Status: domain.StatusAvailable, NetQuantity: decimal.NewFromInt(5), WithdrawalDate: domain.AddDays(day0, -1)},
		{ID: 4, Status: domain.StatusSurplus, NetQuantity: decimal.NewFromInt(10), WithdrawalDate: day0},
		{ID: 5, Status: domain.StatusAvailable, NetQuantity: decimal.NewFromInt(2), WithdrawalDate: day0},
	}
	orderForAllocation(batches)

	var ids []int64
	for _, b := range batches {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []int64{4, 2, 5, 3, 1}, ids)
}

func TestAllocate(t *testing.T) {
	shrink := DefaultParams().shrink()
	mk := func() []domain.Batch {
		return []domain.Batch{
			{ID: 1, GrossQuantity: decimal.NewFromInt(20), NetQuantity: decimal.NewFromInt(10), Status: domain.StatusSurplus},
			{ID: 2, GrossQuantity: decimal.NewFromInt(20), NetQuantity: decimal.NewFromInt(5), Status: domain.StatusAvailable},
		}
	}

	tests := []struct {
		name          string
		qty           string
		wantFulfilled string
		wantShortfall string
		wantLines     int
		wantSoldOut   []int64
	}{
		{"zero request touches nothing", "0", "0", "0", 0, nil},
		{"covered by first batch", "4", "4", "0", 1, nil},
		{"exactly drains first batch", "10", "10", "0", 1, []int64{1}},
		{"spans both batches", "12", "12", "0", 2, []int64{1}},
		{"exceeds stock", "20", "15", "5", 2, []int64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := mk()
			total := decimal.Zero
			for _, b := range batches {
				total = total.Add(b.NetQuantity)
			}

			qty := decimal.RequireFromString(tt.qty)
			alloc, changed, err := allocate(batches, qty, shrink)
			require.NoError(t, err)

			assertDecimal(t, tt.wantFulfilled, alloc.Fulfilled)
			assertDecimal(t, tt.wantShortfall, alloc.Shortfall)
			assert.Len(t, alloc.Lines, tt.wantLines)

			sum := decimal.Zero
			for _, l := range alloc.Lines {
				sum = sum.Add(l.Taken)
			}
			assertDecimal(t, decimal.Min(qty, total).String(), sum)

			var soldOut []int64
			for _, b := range changed {
				assert.False(t, b.NetQuantity.IsNegative())
				if b.Status == domain.StatusSoldOut {
					soldOut = append(soldOut, b.ID)
				}
			}
			assert.Equal(t, tt.wantSoldOut, soldOut)
		})
	}
}

func TestAllocateRejectsCorruptBatch(t *testing.T) {
	batches := []domain.Batch{
		{ID: 1, GrossQuantity: decimal.NewFromInt(10), NetQuantity: decimal.NewFromInt(50), Status: domain.StatusAvailable},
	}
	_, _, err := allocate(batches, decimal.NewFromInt(1), DefaultParams().shrink())
	assert.ErrorIs(t, err, domain.ErrDataIntegrity)
}

func TestRegisterSaleAllocatesInPriorityOrder(t *testing.T) {
	ctx := context.Background()
	e, gw := newTestEngine(t, "A")
	today := domain.AddDays(day0, 3)

	older := seedBatch(t, gw, "A", domain.AddDays(day0, -1), "20", "12", domain.StatusSurplus)
	fresh := seedBatch(t, gw, "A", day0, "20", "17", domain.StatusAvailable)
	thawing := seedBatch(t, gw, "A", domain.AddDays(day0, 2), "20", "17", domain.StatusThawing)

	alloc, err := e.RegisterSale(ctx, "A", today, 15)
	require.NoError(t, err)
	assertDecimal(t, "15", alloc.Fulfilled)
	assert.False(t, alloc.InsufficientStock())
	require.Len(t, alloc.Lines, 2)
	assert.Equal(t, older.ID, alloc.Lines[0].BatchID)
	assert.Equal(t, fresh.ID, alloc.Lines[1].BatchID)

	got := batchByID(t, gw, "A", older.ID)
	assert.Equal(t, domain.StatusSoldOut, got.Status)
	assertDecimal(t, "0", got.NetQuantity)
	assertDecimal(t, "14", batchByID(t, gw, "A", fresh.ID).NetQuantity)
	assertDecimal(t, "17", batchByID(t, gw, "A", thawing.ID).NetQuantity)

	sale, err := gw.GetSale(ctx, "A", today)
	require.NoError(t, err)
	require.NotNil(t, sale)
	assert.Equal(t, 15.0, sale.Quantity)
}

func TestRegisterSalePartialFulfilment(t *testing.T) {
	ctx := context.Background()
	e, gw := newTestEngine(t, "A")
	seedBatch(t, gw, "A", day0, "10", "8.5", domain.StatusAvailable)

	alloc, err := e.RegisterSale(ctx, "A", domain.AddDays(day0, 2), 12)
	require.NoError(t, err)
	assertDecimal(t, "8.5", alloc.Fulfilled)
	assertDecimal(t, "3.5", alloc.Shortfall)
	assert.True(t, alloc.InsufficientStock())

	// the full requested quantity is still recorded as demand
	sale, err := gw.GetSale(ctx, "A", domain.AddDays(day0, 2))
	require.NoError(t, err)
	assert.Equal(t, 12.0, sale.Quantity)
}

func TestRegisterSaleErrors(t *testing.T) {
	ctx := context.Background()
	e, gw := newTestEngine(t, "A")

	_, err := e.RegisterSale(ctx, "missing", day0, 1)
	assert.ErrorIs(t, err, domain.ErrUnknownProduct)

	_, err = e.RegisterSale(ctx, "A", day0, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	sales, err := gw.ListSales(ctx, "A", day0, day0)
	require.NoError(t, err)
	assert.Empty(t, sales)
}
