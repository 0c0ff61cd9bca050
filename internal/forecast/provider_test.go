package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readerFunc func(ctx context.Context, sku string, date time.Time) (*domain.Forecast, error)

func (f readerFunc) GetForecast(ctx context.Context, sku string, date time.Time) (*domain.Forecast, error) {
	return f(ctx, sku, date)
}

func TestStoredProvider(t *testing.T) {
	day := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	p := NewStoredProvider(readerFunc(func(ctx context.Context, sku string, date time.Time) (*domain.Forecast, error) {
		switch sku {
		case "A":
			return &domain.Forecast{ProductSKU: sku, Date: date, Quantity: 42.5}, nil
		case "broken":
			return nil, errors.New("connection reset")
		}
		return nil, nil
	}))

	qty, ok, err := p.Forecast(context.Background(), "A", day)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42.5, qty)

	_, ok, err = p.Forecast(context.Background(), "B", day)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = p.Forecast(context.Background(), "broken", day)
	assert.ErrorContains(t, err, "broken")
}

func TestStatic(t *testing.T) {
	s := Static{"A": {"2025-03-12": 10}}

	qty, ok, err := s.Forecast(context.Background(), "A", time.Date(2025, 3, 12, 18, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 10.0, qty)

	_, ok, _ = s.Forecast(context.Background(), "A", time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)

	_, ok, _ = s.Forecast(context.Background(), "Z", time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}
