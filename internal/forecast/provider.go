// Package forecast supplies predicted demand to the withdrawal calculator.
package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/thawflow/internal/domain"
)

// Provider returns the predicted demand for a SKU on a date. ok is false when
// no forecast exists.
type Provider interface {
	Forecast(ctx context.Context, sku string, date time.Time) (qty float64, ok bool, err error)
}

// Reader is the slice of the gateway a StoredProvider needs.
type Reader interface {
	GetForecast(ctx context.Context, sku string, date time.Time) (*domain.Forecast, error)
}

// StoredProvider reads forecasts produced offline and loaded into storage.
type StoredProvider struct {
	reader Reader
}

func NewStoredProvider(reader Reader) *StoredProvider {
	return &StoredProvider{reader: reader}
}

func (p *StoredProvider) Forecast(ctx context.Context, sku string, date time.Time) (float64, bool, error) {
	f, err := p.reader.GetForecast(ctx, sku, date)
	if err != nil {
		return 0, false, fmt.Errorf("error reading forecast for %s: %w", sku, err)
	}
	if f == nil {
		return 0, false, nil
	}
	return f.Quantity, true, nil
}

// Static is a fixed forecast table keyed by SKU and YYYY-MM-DD date.
type Static map[string]map[string]float64

func (s Static) Forecast(ctx context.Context, sku string, date time.Time) (float64, bool, error) {
	byDate, ok := s[sku]
	if !ok {
		return 0, false, nil
	}
	qty, ok := byDate[domain.Day(date).Format(domain.DateLayout)]
	return qty, ok, nil
}
