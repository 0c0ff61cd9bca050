package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/repository"
	"github.com/rs/zerolog/log"
)

// Transition is a status change applied to a batch by a lifecycle run.
type Transition struct {
	BatchID int64              `json:"batch_id"`
	SKU     string             `json:"sku"`
	From    domain.BatchStatus `json:"from"`
	To      domain.BatchStatus `json:"to"`
}

// LifecycleReport summarises one lifecycle run.
type LifecycleReport struct {
	Date        time.Time    `json:"date"`
	Scanned     int          `json:"scanned"`
	Transitions []Transition `json:"transitions"`
}

// NextStatus applies the lifecycle rules to b as of today, in order:
// thawing to available, available to surplus, then expiry, then depletion.
// Each rule sees the result of the previous one, so a batch can cross more
// than one threshold in a single run.
func NextStatus(b domain.Batch, today time.Time) domain.BatchStatus {
	today = domain.Day(today)
	s := b.Status
	if s.Terminal() {
		return s
	}

	if s == domain.StatusThawing && !today.Before(b.SaleEligibleDate) {
		s = domain.StatusAvailable
	}
	if s == domain.StatusAvailable && today.After(b.SaleEligibleDate) && b.NetQuantity.IsPositive() {
		s = domain.StatusSurplus
	}
	sellable := s == domain.StatusAvailable || s == domain.StatusSurplus
	if sellable && !today.Before(b.ExpirationDate) {
		return domain.StatusExpired
	}
	if sellable && b.NetQuantity.IsZero() && !today.Before(b.SaleEligibleDate) {
		return domain.StatusSoldOut
	}
	return s
}

// ageOn returns whole days since withdrawal, never negative.
func ageOn(b domain.Batch, today time.Time) int {
	age := domain.DaysBetween(b.WithdrawalDate, today)
	if age < 0 {
		return 0
	}
	return age
}

// advance moves every open batch of sku (all SKUs when empty) forward.
func (e *Engine) advance(ctx context.Context, q repository.Queries, sku string, today time.Time) (*LifecycleReport, error) {
	today = domain.Day(today)
	batches, err := q.ListOpenBatches(ctx, sku)
	if err != nil {
		return nil, err
	}

	report := &LifecycleReport{Date: today, Scanned: len(batches)}
	for _, b := range batches {
		next := NextStatus(b, today)
		if !b.Status.CanTransitionTo(next) {
			err := fmt.Errorf("%w: batch %d cannot move from %s to %s", domain.ErrDataIntegrity, b.ID, b.Status, next)
			log.Error().Err(err).Str("sku", b.ProductSKU).Msg("lifecycle aborted")
			return nil, err
		}

		age := ageOn(b, today)
		if next == b.Status && age == b.AgeDays {
			continue
		}
		if err := q.UpdateBatch(ctx, b.ID, b.NetQuantity, next, age); err != nil {
			return nil, err
		}
		if next != b.Status {
			report.Transitions = append(report.Transitions, Transition{
				BatchID: b.ID, SKU: b.ProductSKU, From: b.Status, To: next,
			})
		}
	}
	return report, nil
}

// AdvanceDaily runs the lifecycle over the whole catalog in one transaction.
func (e *Engine) AdvanceDaily(ctx context.Context, today time.Time) (*LifecycleReport, error) {
	var report *LifecycleReport
	err := e.gw.RunInTx(ctx, func(q repository.Queries) error {
		var err error
		report, err = e.advance(ctx, q, "", today)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("advance lifecycle: %w", err)
	}

	log.Info().
		Str("date", report.Date.Format(domain.DateLayout)).
		Int("scanned", report.Scanned).
		Int("transitions", len(report.Transitions)).
		Msg("lifecycle advanced")
	return report, nil
}
