package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/repository"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// AllocationLine is the quantity taken from one batch.
type AllocationLine struct {
	BatchID   int64              `json:"batch_id"`
	Taken     decimal.Decimal    `json:"taken"`
	Remaining decimal.Decimal    `json:"remaining"`
	Status    domain.BatchStatus `json:"status"`
}

// Allocation is the outcome of drawing a sale against the sellable batches.
// A positive Shortfall means stock ran out before the request was covered.
type Allocation struct {
	SKU       string           `json:"sku"`
	Date      time.Time        `json:"date"`
	Requested decimal.Decimal  `json:"requested"`
	Fulfilled decimal.Decimal  `json:"fulfilled"`
	Shortfall decimal.Decimal  `json:"shortfall"`
	Lines     []AllocationLine `json:"lines"`
}

// InsufficientStock reports whether part of the request went unserved.
func (a Allocation) InsufficientStock() bool {
	return a.Shortfall.IsPositive()
}

// orderForAllocation sorts surplus before available, then smaller net first,
// then older withdrawals, then lower id.
func orderForAllocation(batches []domain.Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		as, bs := a.Status == domain.StatusSurplus, b.Status == domain.StatusSurplus
		if as != bs {
			return as
		}
		if c := a.NetQuantity.Cmp(b.NetQuantity); c != 0 {
			return c < 0
		}
		if !a.WithdrawalDate.Equal(b.WithdrawalDate) {
			return a.WithdrawalDate.Before(b.WithdrawalDate)
		}
		return a.ID < b.ID
	})
}

// allocate consumes qty greedily from batches (already ordered) and returns
// the allocation plus the batches whose quantity changed.
func allocate(batches []domain.Batch, qty, shrink decimal.Decimal) (Allocation, []domain.Batch, error) {
	alloc := Allocation{Requested: qty, Fulfilled: decimal.Zero, Shortfall: decimal.Zero}
	remaining := qty
	var changed []domain.Batch

	for _, b := range batches {
		if !remaining.IsPositive() {
			break
		}
		if !b.NetQuantity.IsPositive() {
			continue
		}

		take := decimal.Min(remaining, b.NetQuantity)
		b.NetQuantity = b.NetQuantity.Sub(take)
		if b.NetQuantity.IsZero() {
			b.Status = domain.StatusSoldOut
		}
		if err := b.Validate(shrink); err != nil {
			return Allocation{}, nil, err
		}

		remaining = remaining.Sub(take)
		alloc.Fulfilled = alloc.Fulfilled.Add(take)
		alloc.Lines = append(alloc.Lines, AllocationLine{
			BatchID: b.ID, Taken: take, Remaining: b.NetQuantity, Status: b.Status,
		})
		changed = append(changed, b)
	}

	alloc.Shortfall = qty.Sub(alloc.Fulfilled)
	return alloc, changed, nil
}

// Allocate draws qty of sku sold on date from its sellable batches.
func (e *Engine) Allocate(ctx context.Context, q repository.Queries, sku string, date time.Time, qty decimal.Decimal) (Allocation, error) {
	date = domain.Day(date)
	if qty.IsNegative() {
		return Allocation{}, fmt.Errorf("%w: %s", domain.ErrInvalidQuantity, qty)
	}

	batches, err := q.ListEligibleBatches(ctx, sku, date)
	if err != nil {
		return Allocation{}, err
	}
	orderForAllocation(batches)

	alloc, changed, err := allocate(batches, qty, e.params.shrink())
	if err != nil {
		log.Error().Err(err).Str("sku", sku).Msg("allocation aborted")
		return Allocation{}, err
	}
	alloc.SKU = sku
	alloc.Date = date

	for _, b := range changed {
		if err := q.UpdateBatch(ctx, b.ID, b.NetQuantity, b.Status, ageOn(b, date)); err != nil {
			return Allocation{}, err
		}
	}

	if alloc.InsufficientStock() {
		log.Warn().
			Str("sku", sku).
			Str("requested", alloc.Requested.String()).
			Str("fulfilled", alloc.Fulfilled.String()).
			Msg("insufficient stock for sale")
	}
	return alloc, nil
}
