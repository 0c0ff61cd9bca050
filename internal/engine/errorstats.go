package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/repository"
)

// AccuracyDays is how many recent forecast/actual days the accuracy
// metrics look at.
const AccuracyDays = 7

// sampleStdDev returns the n-1 standard deviation, or 0 with fewer than two values.
func sampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n-1))
}

// errorStdDev is the spread of (actual - predicted) over the most recent
// forecast/actual pairs for sku.
func (e *Engine) errorStdDev(ctx context.Context, q repository.Queries, sku string) (float64, error) {
	pairs, err := q.RecentForecastActualPairs(ctx, sku, e.params.ErrorWindow)
	if err != nil {
		return 0, fmt.Errorf("error statistics for %s: %w", sku, err)
	}
	errs := make([]float64, len(pairs))
	for i, p := range pairs {
		errs[i] = p.Error()
	}
	return sampleStdDev(errs), nil
}

// mape is the mean absolute percentage error over pairs with a non-zero
// actual. ok is false when no such pair exists.
func mape(pairs []domain.ForecastActual) (float64, bool) {
	var sum float64
	var n int
	for _, p := range pairs {
		if p.Actual == 0 {
			continue
		}
		sum += math.Abs(p.Error() / p.Actual)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n) * 100, true
}

func rmse(pairs []domain.ForecastActual) float64 {
	if len(pairs) == 0 {
		return 0
	}
	var sq float64
	for _, p := range pairs {
		sq += p.Error() * p.Error()
	}
	return math.Sqrt(sq / float64(len(pairs)))
}

func rateMAPE(m float64) string {
	switch {
	case m < 10:
		return "excellent"
	case m < 20:
		return "good"
	case m < 30:
		return "moderate"
	default:
		return "poor"
	}
}

func accuracyOf(pairs []domain.ForecastActual) domain.ForecastAccuracy {
	acc := domain.ForecastAccuracy{Days: len(pairs), RMSE: rmse(pairs)}
	if m, ok := mape(pairs); ok {
		acc.MAPE = m
		acc.Rating = rateMAPE(m)
	}
	return acc
}

// ForecastAccuracy reports MAPE and RMSE of sku's forecasts over the last
// AccuracyDays days that have both a forecast and a sale.
func (e *Engine) ForecastAccuracy(ctx context.Context, q repository.Queries, sku string) (domain.ForecastAccuracy, error) {
	pairs, err := q.RecentForecastActualPairs(ctx, sku, AccuracyDays)
	if err != nil {
		return domain.ForecastAccuracy{}, fmt.Errorf("forecast accuracy for %s: %w", sku, err)
	}
	return accuracyOf(pairs), nil
}
