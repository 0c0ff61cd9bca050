package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatusCount is the number of batches in a given lifecycle status
type StatusCount struct {
	Status BatchStatus `json:"status"`
	Label  string      `json:"label"`
	Count  int         `json:"count"`
}

// BatchTotals aggregates quantities across a SKU's batches
type BatchTotals struct {
	Initial  decimal.Decimal `json:"initial"`  // sum of gross*shrink
	Current  decimal.Decimal `json:"current"`  // sum of net
	Sellable decimal.Decimal `json:"sellable"` // net in available + surplus
	Thawing  decimal.Decimal `json:"thawing"`
}

// BatchSummary is the dashboard view of one SKU's pipeline
type BatchSummary struct {
	Product      Product          `json:"product"`
	AsOf         time.Time        `json:"as_of"`
	Batches      []Batch          `json:"batches"`
	Totals       BatchTotals      `json:"totals"`
	StatusCounts []StatusCount    `json:"status_counts"`
	RecentSales  []Sale           `json:"recent_sales"`
	Forecasts    []Forecast       `json:"forecasts"`
	Accuracy     ForecastAccuracy `json:"accuracy"`
}

// ForecastAccuracy compares the latest stored forecasts with the sales
// recorded on the same days. MAPE is in percent and skips days that sold
// nothing; RMSE is in kg.
type ForecastAccuracy struct {
	Days   int     `json:"days"`
	MAPE   float64 `json:"mape"`
	RMSE   float64 `json:"rmse"`
	Rating string  `json:"rating"`
}

// SummarizeBatches computes totals and per-status counts. Every status is
// present in the counts, in lifecycle order.
func SummarizeBatches(batches []Batch, shrink decimal.Decimal) (BatchTotals, []StatusCount) {
	totals := BatchTotals{
		Initial:  decimal.Zero,
		Current:  decimal.Zero,
		Sellable: decimal.Zero,
		Thawing:  decimal.Zero,
	}
	counts := make(map[BatchStatus]int, len(AllStatuses))

	for _, b := range batches {
		totals.Initial = totals.Initial.Add(b.InitialNet(shrink))
		totals.Current = totals.Current.Add(b.NetQuantity)
		switch b.Status {
		case StatusAvailable, StatusSurplus:
			totals.Sellable = totals.Sellable.Add(b.NetQuantity)
		case StatusThawing:
			totals.Thawing = totals.Thawing.Add(b.NetQuantity)
		}
		counts[b.Status]++
	}

	statusCounts := make([]StatusCount, 0, len(AllStatuses))
	for _, s := range AllStatuses {
		statusCounts = append(statusCounts, StatusCount{Status: s, Label: s.Label(), Count: counts[s]})
	}
	return totals, statusCounts
}
