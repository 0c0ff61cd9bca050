// Package engine holds the daily withdrawal, batch lifecycle and sale
// allocation rules.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/thawflow/internal/config"
	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/shopspring/decimal"
)

// Params are the engine constants. They are fixed for the lifetime of an Engine.
type Params struct {
	SafetyFactor     float64 // k
	ShrinkFactor     float64 // alpha
	ThawDays         int
	ShelfDays        int
	ErrorWindow      int
	ForecastLeadDays int
	RoutineName      string
	Workers          int
	Location         *time.Location
}

func DefaultParams() Params {
	return Params{
		SafetyFactor:     1.65,
		ShrinkFactor:     0.85,
		ThawDays:         2,
		ShelfDays:        2,
		ErrorWindow:      30,
		ForecastLeadDays: 2,
		RoutineName:      "daily_flow",
		Workers:          4,
		Location:         time.Local,
	}
}

// ParamsFromConfig builds validated Params from the ENGINE_* settings.
func ParamsFromConfig(cfg config.EngineConfig) (Params, error) {
	p := Params{
		SafetyFactor:     cfg.SafetyFactor,
		ShrinkFactor:     cfg.ShrinkFactor,
		ThawDays:         cfg.ThawDays,
		ShelfDays:        cfg.ShelfDays,
		ErrorWindow:      cfg.ErrorWindow,
		ForecastLeadDays: cfg.ForecastLeadDays,
		RoutineName:      cfg.DailyRoutineName,
		Workers:          cfg.Workers,
		Location:         time.Local,
	}
	if cfg.TimeZone != "" && cfg.TimeZone != "Local" {
		loc, err := time.LoadLocation(cfg.TimeZone)
		if err != nil {
			return Params{}, fmt.Errorf("invalid ENGINE_TIMEZONE %q: %w", cfg.TimeZone, err)
		}
		p.Location = loc
	}
	return p, p.Validate()
}

func (p Params) Validate() error {
	var errs []error
	if p.ShrinkFactor <= 0 || p.ShrinkFactor > 1 {
		errs = append(errs, fmt.Errorf("shrink factor must be in (0, 1], got %v", p.ShrinkFactor))
	}
	if p.SafetyFactor < 0 {
		errs = append(errs, fmt.Errorf("safety factor must be >= 0, got %v", p.SafetyFactor))
	}
	if p.ThawDays < 0 || p.ShelfDays < 0 {
		errs = append(errs, fmt.Errorf("thaw and shelf days must be >= 0"))
	}
	if p.ErrorWindow <= 0 {
		errs = append(errs, fmt.Errorf("error window must be > 0, got %d", p.ErrorWindow))
	}
	if p.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be > 0, got %d", p.Workers))
	}
	if p.RoutineName == "" {
		errs = append(errs, errors.New("routine name is required"))
	}
	return errors.Join(errs...)
}

func (p Params) shrink() decimal.Decimal {
	return decimal.NewFromFloat(p.ShrinkFactor)
}

// BatchPolicy is the batch construction policy implied by the params.
func (p Params) BatchPolicy() domain.BatchPolicy {
	return domain.BatchPolicy{
		ShrinkFactor: p.shrink(),
		ThawDays:     p.ThawDays,
		ShelfDays:    p.ShelfDays,
	}
}

// Today is the current calendar date in the configured time zone.
func (p Params) Today(now time.Time) time.Time {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	return domain.Day(now.In(loc))
}
