package engine

import (
	"context"
	"testing"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccuracyOf(t *testing.T) {
	tests := []struct {
		name       string
		pairs      []domain.ForecastActual
		wantDays   int
		wantMAPE   float64
		wantRMSE   float64
		wantRating string
	}{
		{
			name:     "no pairs",
			wantDays: 0,
		},
		{
			name: "exact forecasts",
			pairs: []domain.ForecastActual{
				{Predicted: 10, Actual: 10},
				{Predicted: 20, Actual: 20},
			},
			wantDays:   2,
			wantRating: "excellent",
		},
		{
			name: "mixed errors",
			pairs: []domain.ForecastActual{
				{Predicted: 90, Actual: 100},
				{Predicted: 60, Actual: 50},
			},
			wantDays:   2,
			wantMAPE:   15,
			wantRMSE:   10,
			wantRating: "good",
		},
		{
			name: "zero actual only counts towards rmse",
			pairs: []domain.ForecastActual{
				{Predicted: 4, Actual: 0},
				{Predicted: 13, Actual: 10},
			},
			wantDays:   2,
			wantMAPE:   30,
			wantRMSE:   3.5355339,
			wantRating: "poor",
		},
		{
			name:     "only zero actuals",
			pairs:    []domain.ForecastActual{{Predicted: 3, Actual: 0}},
			wantDays: 1,
			wantRMSE: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := accuracyOf(tt.pairs)
			assert.Equal(t, tt.wantDays, got.Days)
			assert.InDelta(t, tt.wantMAPE, got.MAPE, 1e-6)
			assert.InDelta(t, tt.wantRMSE, got.RMSE, 1e-6)
			assert.Equal(t, tt.wantRating, got.Rating)
		})
	}
}

func TestRateMAPE(t *testing.T) {
	assert.Equal(t, "excellent", rateMAPE(9.99))
	assert.Equal(t, "good", rateMAPE(10))
	assert.Equal(t, "moderate", rateMAPE(29.9))
	assert.Equal(t, "poor", rateMAPE(30))
}

func TestForecastAccuracyUsesLatestDays(t *testing.T) {
	ctx := context.Background()
	e, gw := newTestEngine(t, "A")

	// an old, badly forecast day falls outside the window
	for i := 1; i <= AccuracyDays+1; i++ {
		d := domain.AddDays(day0, -i)
		predicted := 115.0
		if i == AccuracyDays+1 {
			predicted = 500
		}
		require.NoError(t, gw.UpsertForecast(ctx, domain.Forecast{ProductSKU: "A", Date: d, Quantity: predicted}))
		require.NoError(t, gw.RecordSale(ctx, domain.Sale{ProductSKU: "A", Date: d, Quantity: 100}))
	}

	acc, err := e.ForecastAccuracy(ctx, gw, "A")
	require.NoError(t, err)
	assert.Equal(t, AccuracyDays, acc.Days)
	assert.InDelta(t, 15.0, acc.MAPE, 1e-9)
	assert.InDelta(t, 15.0, acc.RMSE, 1e-9)
	assert.Equal(t, "good", acc.Rating)
}
