// Package memory is an in-process repository.Gateway used by tests and the
// STORE_BACKEND=memory mode.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/repository"
	"github.com/shopspring/decimal"
)

type dayKey struct {
	sku  string
	date string
}

func keyOf(sku string, date time.Time) dayKey {
	return dayKey{sku: sku, date: domain.Day(date).Format(domain.DateLayout)}
}

type state struct {
	products    map[string]domain.Product
	batches     []domain.Batch
	sales       map[dayKey]domain.Sale
	runs        map[string]domain.RunControl
	nextSaleID  int64
	nextBatchID int64
}

func newState() *state {
	return &state{
		products: make(map[string]domain.Product),
		sales:    make(map[dayKey]domain.Sale),
		runs:     make(map[string]domain.RunControl),
	}
}

func (s *state) clone() *state {
	c := &state{
		products:    make(map[string]domain.Product, len(s.products)),
		batches:     make([]domain.Batch, len(s.batches)),
		sales:       make(map[dayKey]domain.Sale, len(s.sales)),
		runs:        make(map[string]domain.RunControl, len(s.runs)),
		nextSaleID:  s.nextSaleID,
		nextBatchID: s.nextBatchID,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	copy(c.batches, s.batches)
	for k, v := range s.sales {
		c.sales[k] = v
	}
	for k, v := range s.runs {
		c.runs[k] = v
	}
	return c
}

// Gateway keeps every table in maps. Transactions hold mu for their whole
// duration and restore a snapshot on error. Forecasts live under their own
// lock so a forecast provider can read them while a transaction is open; a
// rollback only reverts the forecast keys the transaction wrote.
type Gateway struct {
	mu   sync.Mutex
	data *state

	fmu       sync.RWMutex
	forecasts map[dayKey]domain.Forecast
}

var _ repository.Gateway = (*Gateway)(nil)

// New returns an empty gateway.
func New() *Gateway {
	return &Gateway{
		data:      newState(),
		forecasts: make(map[dayKey]domain.Forecast),
	}
}

// RunInTx runs fn with exclusive access to the store.
func (g *Gateway) RunInTx(ctx context.Context, fn func(q repository.Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	snapshot := g.data.clone()
	tx := &view{g: g, forecastUndo: make(map[dayKey]*domain.Forecast)}

	if err := fn(tx); err != nil {
		g.data = snapshot
		g.fmu.Lock()
		for k, prev := range tx.forecastUndo {
			if prev == nil {
				delete(g.forecasts, k)
			} else {
				g.forecasts[k] = *prev
			}
		}
		g.fmu.Unlock()
		return err
	}
	return nil
}

func (g *Gateway) Close() error { return nil }

// view implements repository.Queries without taking mu; callers hold it.
type view struct {
	g *Gateway
	// value of each forecast before the transaction first wrote it, nil when
	// absent. The map itself is nil outside a transaction.
	forecastUndo map[dayKey]*domain.Forecast
}

func (v *view) GetProduct(ctx context.Context, sku string) (*domain.Product, error) {
	p, ok := v.g.data.products[sku]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (v *view) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(v.g.data.products))
	for _, p := range v.g.data.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].SKU < products[j].SKU })
	return products, nil
}

func (v *view) UpsertProduct(ctx context.Context, p domain.Product) error {
	if existing, ok := v.g.data.products[p.SKU]; ok {
		p.CreatedAt = existing.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	v.g.data.products[p.SKU] = p
	return nil
}

func (v *view) LockProduct(ctx context.Context, sku string) error {
	return ctx.Err()
}

func (v *view) GetForecast(ctx context.Context, sku string, date time.Time) (*domain.Forecast, error) {
	v.g.fmu.RLock()
	defer v.g.fmu.RUnlock()
	f, ok := v.g.forecasts[keyOf(sku, date)]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (v *view) UpsertForecast(ctx context.Context, f domain.Forecast) error {
	f.Date = domain.Day(f.Date)
	k := keyOf(f.ProductSKU, f.Date)
	v.g.fmu.Lock()
	defer v.g.fmu.Unlock()
	if v.forecastUndo != nil {
		if _, seen := v.forecastUndo[k]; !seen {
			if prev, ok := v.g.forecasts[k]; ok {
				v.forecastUndo[k] = &prev
			} else {
				v.forecastUndo[k] = nil
			}
		}
	}
	v.g.forecasts[k] = f
	return nil
}

func (v *view) ListForecasts(ctx context.Context, sku string, from, to time.Time) ([]domain.Forecast, error) {
	v.g.fmu.RLock()
	defer v.g.fmu.RUnlock()
	var out []domain.Forecast
	for _, f := range v.g.forecasts {
		if f.ProductSKU == sku && inRange(f.Date, from, to) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (v *view) RecentForecastActualPairs(ctx context.Context, sku string, limit int) ([]domain.ForecastActual, error) {
	if limit <= 0 {
		limit = repository.DefaultErrorWindow
	}
	v.g.fmu.RLock()
	defer v.g.fmu.RUnlock()

	var pairs []domain.ForecastActual
	for k, f := range v.g.forecasts {
		if k.sku != sku {
			continue
		}
		sale, ok := v.g.data.sales[k]
		if !ok {
			continue
		}
		pairs = append(pairs, domain.ForecastActual{Date: f.Date, Predicted: f.Quantity, Actual: sale.Quantity})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Date.After(pairs[j].Date) })
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs, nil
}

func (v *view) GetSale(ctx context.Context, sku string, date time.Time) (*domain.Sale, error) {
	s, ok := v.g.data.sales[keyOf(sku, date)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (v *view) RecordSale(ctx context.Context, sale domain.Sale) error {
	k := keyOf(sale.ProductSKU, sale.Date)
	if existing, ok := v.g.data.sales[k]; ok {
		existing.Quantity += sale.Quantity
		v.g.data.sales[k] = existing
		return nil
	}
	v.g.data.nextSaleID++
	sale.ID = v.g.data.nextSaleID
	sale.Date = domain.Day(sale.Date)
	v.g.data.sales[k] = sale
	return nil
}

func (v *view) ListSales(ctx context.Context, sku string, from, to time.Time) ([]domain.Sale, error) {
	var out []domain.Sale
	for _, s := range v.g.data.sales {
		if s.ProductSKU == sku && inRange(s.Date, from, to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (v *view) AverageDemand(ctx context.Context, sku string) (float64, error) {
	var total float64
	var n int
	for _, s := range v.g.data.sales {
		if s.ProductSKU == sku {
			total += s.Quantity
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return total / float64(n), nil
}

func (v *view) CreateBatch(ctx context.Context, b *domain.Batch) error {
	for _, existing := range v.g.data.batches {
		if existing.ProductSKU == b.ProductSKU && existing.WithdrawalDate.Equal(b.WithdrawalDate) {
			return fmt.Errorf("%w: %s on %s", domain.ErrBatchExists,
				b.ProductSKU, b.WithdrawalDate.Format(domain.DateLayout))
		}
	}
	v.g.data.nextBatchID++
	b.ID = v.g.data.nextBatchID
	v.g.data.batches = append(v.g.data.batches, *b)
	return nil
}

func (v *view) GetWithdrawal(ctx context.Context, sku string, date time.Time) (*domain.Batch, error) {
	day := domain.Day(date)
	for _, b := range v.g.data.batches {
		if b.ProductSKU == sku && b.WithdrawalDate.Equal(day) {
			return &b, nil
		}
	}
	return nil, nil
}

func (v *view) ListOpenBatches(ctx context.Context, sku string) ([]domain.Batch, error) {
	var out []domain.Batch
	for _, b := range v.g.data.batches {
		if (sku == "" || b.ProductSKU == sku) && !b.Status.Terminal() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (v *view) ListEligibleBatches(ctx context.Context, sku string, date time.Time) ([]domain.Batch, error) {
	var out []domain.Batch
	for _, b := range v.g.data.batches {
		if b.ProductSKU == sku && b.Sellable(date) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Status == domain.StatusSurplus, out[j].Status == domain.StatusSurplus
		if si != sj {
			return si
		}
		if c := out[i].NetQuantity.Cmp(out[j].NetQuantity); c != 0 {
			return c < 0
		}
		return out[i].WithdrawalDate.Before(out[j].WithdrawalDate)
	})
	return out, nil
}

func (v *view) ListBatches(ctx context.Context, sku string) ([]domain.Batch, error) {
	var out []domain.Batch
	for _, b := range v.g.data.batches {
		if b.ProductSKU == sku {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].WithdrawalDate.After(out[j].WithdrawalDate) })
	return out, nil
}

func (v *view) UpdateBatch(ctx context.Context, id int64, net decimal.Decimal, status domain.BatchStatus, ageDays int) error {
	for i := range v.g.data.batches {
		if v.g.data.batches[i].ID == id {
			v.g.data.batches[i].NetQuantity = net
			v.g.data.batches[i].Status = status
			v.g.data.batches[i].AgeDays = ageDays
			return nil
		}
	}
	return fmt.Errorf("batch %d not found", id)
}

func (v *view) GetRunControl(ctx context.Context, routine string) (*domain.RunControl, error) {
	rc, ok := v.g.data.runs[routine]
	if !ok {
		return nil, nil
	}
	return &rc, nil
}

func (v *view) SetRunControl(ctx context.Context, routine string, date time.Time) error {
	v.g.data.runs[routine] = domain.RunControl{RoutineName: routine, LastRunDate: domain.Day(date)}
	return nil
}

func (v *view) ClaimRunControl(ctx context.Context, routine string, date time.Time) (bool, error) {
	day := domain.Day(date)
	if rc, ok := v.g.data.runs[routine]; ok && rc.LastRunDate.Equal(day) {
		return false, nil
	}
	v.g.data.runs[routine] = domain.RunControl{RoutineName: routine, LastRunDate: day}
	return true, nil
}

func inRange(d, from, to time.Time) bool {
	if !from.IsZero() && d.Before(domain.Day(from)) {
		return false
	}
	if !to.IsZero() && d.After(domain.Day(to)) {
		return false
	}
	return true
}
