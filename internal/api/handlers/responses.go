package handlers

import (
	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/engine"
)

// Quantities leave the API as plain JSON numbers; decimals stay internal.

type batchResponse struct {
	ID               int64              `json:"id"`
	ProductSKU       string             `json:"product_sku"`
	GrossQuantity    float64            `json:"gross_quantity"`
	NetQuantity      float64            `json:"net_quantity"`
	AgeDays          int                `json:"age_days"`
	Status           domain.BatchStatus `json:"status"`
	StatusLabel      string             `json:"status_label"`
	WithdrawalDate   string             `json:"withdrawal_date"`
	SaleEligibleDate string             `json:"sale_eligible_date"`
	ExpirationDate   string             `json:"expiration_date"`
}

func toBatchResponse(b domain.Batch) batchResponse {
	return batchResponse{
		ID:               b.ID,
		ProductSKU:       b.ProductSKU,
		GrossQuantity:    b.GrossQuantity.InexactFloat64(),
		NetQuantity:      b.NetQuantity.InexactFloat64(),
		AgeDays:          b.AgeDays,
		Status:           b.Status,
		StatusLabel:      b.Status.Label(),
		WithdrawalDate:   b.WithdrawalDate.Format(domain.DateLayout),
		SaleEligibleDate: b.SaleEligibleDate.Format(domain.DateLayout),
		ExpirationDate:   b.ExpirationDate.Format(domain.DateLayout),
	}
}

type totalsResponse struct {
	Initial  float64 `json:"total_initial"`
	Current  float64 `json:"total_current"`
	Sellable float64 `json:"total_sellable"`
	Thawing  float64 `json:"total_thawing"`
}

type seriesPoint struct {
	Date     string  `json:"date"`
	Quantity float64 `json:"quantity"`
}

type summaryResponse struct {
	Product      domain.Product          `json:"product"`
	AsOf         string                  `json:"as_of"`
	Totals       totalsResponse          `json:"totals"`
	StatusCounts []domain.StatusCount    `json:"status_counts"`
	Batches      []batchResponse         `json:"batches"`
	RecentSales  []seriesPoint           `json:"recent_sales"`
	Forecasts    []seriesPoint           `json:"forecasts"`
	Accuracy     domain.ForecastAccuracy `json:"accuracy"`
}

func toSummaryResponse(s *domain.BatchSummary) summaryResponse {
	resp := summaryResponse{
		Product: s.Product,
		AsOf:    s.AsOf.Format(domain.DateLayout),
		Totals: totalsResponse{
			Initial:  s.Totals.Initial.InexactFloat64(),
			Current:  s.Totals.Current.InexactFloat64(),
			Sellable: s.Totals.Sellable.InexactFloat64(),
			Thawing:  s.Totals.Thawing.InexactFloat64(),
		},
		StatusCounts: s.StatusCounts,
		Accuracy:     s.Accuracy,
		Batches:      make([]batchResponse, 0, len(s.Batches)),
		RecentSales:  make([]seriesPoint, 0, len(s.RecentSales)),
		Forecasts:    make([]seriesPoint, 0, len(s.Forecasts)),
	}
	for _, b := range s.Batches {
		resp.Batches = append(resp.Batches, toBatchResponse(b))
	}
	for _, sale := range s.RecentSales {
		resp.RecentSales = append(resp.RecentSales, seriesPoint{Date: sale.Date.Format(domain.DateLayout), Quantity: sale.Quantity})
	}
	for _, f := range s.Forecasts {
		resp.Forecasts = append(resp.Forecasts, seriesPoint{Date: f.Date.Format(domain.DateLayout), Quantity: f.Quantity})
	}
	return resp
}

type allocationLineResponse struct {
	BatchID   int64              `json:"batch_id"`
	Taken     float64            `json:"taken"`
	Remaining float64            `json:"remaining"`
	Status    domain.BatchStatus `json:"status"`
}

type allocationResponse struct {
	SKU               string                   `json:"sku"`
	Date              string                   `json:"date"`
	Requested         float64                  `json:"requested"`
	Fulfilled         float64                  `json:"fulfilled"`
	Shortfall         float64                  `json:"shortfall"`
	InsufficientStock bool                     `json:"insufficient_stock"`
	Lines             []allocationLineResponse `json:"lines"`
}

func toAllocationResponse(a engine.Allocation) allocationResponse {
	resp := allocationResponse{
		SKU:               a.SKU,
		Date:              a.Date.Format(domain.DateLayout),
		Requested:         a.Requested.InexactFloat64(),
		Fulfilled:         a.Fulfilled.InexactFloat64(),
		Shortfall:         a.Shortfall.InexactFloat64(),
		InsufficientStock: a.InsufficientStock(),
		Lines:             make([]allocationLineResponse, 0, len(a.Lines)),
	}
	for _, l := range a.Lines {
		resp.Lines = append(resp.Lines, allocationLineResponse{
			BatchID:   l.BatchID,
			Taken:     l.Taken.InexactFloat64(),
			Remaining: l.Remaining.InexactFloat64(),
			Status:    l.Status,
		})
	}
	return resp
}

type runResultResponse struct {
	SKU        string            `json:"sku"`
	Withdrawal engine.Withdrawal `json:"withdrawal"`
	Batch      batchResponse     `json:"batch"`
}

type runReportResponse struct {
	Date     string              `json:"date"`
	Routine  string              `json:"routine"`
	Results  []runResultResponse `json:"results"`
	Failures []engine.SKUFailure `json:"failures"`
}

func toRunReportResponse(r *engine.RunReport) runReportResponse {
	resp := runReportResponse{
		Date:     r.Date.Format(domain.DateLayout),
		Routine:  r.Routine,
		Results:  make([]runResultResponse, 0, len(r.Results)),
		Failures: r.Failures,
	}
	if resp.Failures == nil {
		resp.Failures = make([]engine.SKUFailure, 0)
	}
	for _, res := range r.Results {
		resp.Results = append(resp.Results, runResultResponse{
			SKU:        res.SKU,
			Withdrawal: res.Withdrawal,
			Batch:      toBatchResponse(res.Batch),
		})
	}
	return resp
}
