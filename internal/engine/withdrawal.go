package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/repository"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// grossPlaces is the precision of a stored withdrawal, in kg decimal places.
const grossPlaces = 3

// Withdrawal is the result of the daily quantity calculation with every term
// that went into it.
type Withdrawal struct {
	SKU                string    `json:"sku"`
	Date               time.Time `json:"date"`
	ForecastDate       time.Time `json:"forecast_date"`
	Forecast           float64   `json:"forecast"`
	ForecastFallback   bool      `json:"forecast_fallback"`
	Sigma              float64   `json:"sigma"`
	PreviousWithdrawal float64   `json:"previous_withdrawal"`
	AverageDemand      float64   `json:"average_demand"`
	Max                float64   `json:"max"`
	Raw                float64   `json:"raw"`
	Quantity           float64   `json:"quantity"`
}

// solve fills Raw, Max and Quantity from the input terms.
//
//	R = (Vp + k*sigma - alpha*R_prev) / alpha, clamped to [0, 2*avg/alpha]
func (w *Withdrawal) solve(p Params) {
	alpha := p.ShrinkFactor
	w.Raw = (w.Forecast + p.SafetyFactor*w.Sigma - alpha*w.PreviousWithdrawal) / alpha
	w.Max = 2 * w.AverageDemand / alpha

	q := math.Max(0, w.Raw)
	q = math.Min(q, w.Max)
	if math.IsNaN(q) || q < 0 {
		q = 0
	}
	w.Quantity = q
}

// Gross is the quantity to take out of the freezer as stored on the batch.
func (w Withdrawal) Gross() decimal.Decimal {
	return decimal.NewFromFloat(w.Quantity).Round(grossPlaces)
}

// ComputeWithdrawal works out how much of sku to withdraw today.
func (e *Engine) ComputeWithdrawal(ctx context.Context, q repository.Queries, sku string, today time.Time) (Withdrawal, error) {
	today = domain.Day(today)
	w := Withdrawal{
		SKU:          sku,
		Date:         today,
		ForecastDate: domain.AddDays(today, e.params.ForecastLeadDays),
	}

	avg, err := q.AverageDemand(ctx, sku)
	if err != nil {
		return w, fmt.Errorf("average demand for %s: %w", sku, err)
	}
	w.AverageDemand = avg

	vp, ok, err := e.forecasts.Forecast(ctx, sku, w.ForecastDate)
	if err != nil {
		return w, err
	}
	if !ok {
		vp = avg
		w.ForecastFallback = true
		log.Warn().
			Str("sku", sku).
			Str("forecast_date", w.ForecastDate.Format(domain.DateLayout)).
			Float64("average_demand", avg).
			Msg("forecast missing, falling back to average demand")
	}
	w.Forecast = vp

	if w.Sigma, err = e.errorStdDev(ctx, q, sku); err != nil {
		return w, err
	}

	prev, err := q.GetWithdrawal(ctx, sku, domain.AddDays(today, -1))
	if err != nil {
		return w, fmt.Errorf("previous withdrawal for %s: %w", sku, err)
	}
	if prev != nil {
		// net withdrawn yesterday, before any of it was sold
		w.PreviousWithdrawal = prev.InitialNet(e.params.shrink()).InexactFloat64()
	}

	w.solve(e.params)
	return w, nil
}
