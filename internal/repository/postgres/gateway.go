package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/andresuchdata/thawflow/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Gateway is the postgres repository.Gateway. Outside RunInTx each call runs
// on the pool; inside it every call shares the transaction.
type Gateway struct {
	queries
	db *DB
}

var _ repository.Gateway = (*Gateway)(nil)

func NewGateway(db *DB) *Gateway {
	return &Gateway{queries: queries{ext: db.DB}, db: db}
}

func (g *Gateway) RunInTx(ctx context.Context, fn func(q repository.Queries) error) error {
	return g.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&queries{ext: tx})
	})
}

func (g *Gateway) Close() error {
	return g.db.Close()
}

type queries struct {
	ext sqlx.ExtContext
}

const batchColumns = `id, product_sku, gross_quantity, net_quantity, age_days, status,
	withdrawal_date, sale_eligible_date, expiration_date`

func dateArg(t time.Time) string {
	return domain.Day(t).Format(domain.DateLayout)
}

// nullableDate passes a zero time as NULL so open-ended ranges work in SQL.
func nullableDate(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return dateArg(t)
}

func normalizeBatch(b *domain.Batch) {
	b.WithdrawalDate = domain.Day(b.WithdrawalDate)
	b.SaleEligibleDate = domain.Day(b.SaleEligibleDate)
	b.ExpirationDate = domain.Day(b.ExpirationDate)
}

func (q *queries) selectBatches(ctx context.Context, query string, args ...interface{}) ([]domain.Batch, error) {
	var batches []domain.Batch
	if err := sqlx.SelectContext(ctx, q.ext, &batches, query, args...); err != nil {
		return nil, err
	}
	for i := range batches {
		normalizeBatch(&batches[i])
	}
	return batches, nil
}

func (q *queries) GetProduct(ctx context.Context, sku string) (*domain.Product, error) {
	var p domain.Product
	err := sqlx.GetContext(ctx, q.ext, &p, `SELECT sku, name, category, created_at FROM products WHERE sku = $1`, sku)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting product %s: %w", sku, err)
	}
	return &p, nil
}

func (q *queries) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := sqlx.SelectContext(ctx, q.ext, &products,
		`SELECT sku, name, category, created_at FROM products ORDER BY sku`); err != nil {
		return nil, fmt.Errorf("error listing products: %w", err)
	}
	return products, nil
}

func (q *queries) UpsertProduct(ctx context.Context, p domain.Product) error {
	_, err := q.ext.ExecContext(ctx, `
		INSERT INTO products (sku, name, category)
		VALUES ($1, $2, $3)
		ON CONFLICT (sku)
		DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category
	`, p.SKU, p.Name, p.Category)
	if err != nil {
		return fmt.Errorf("error upserting product %s: %w", p.SKU, err)
	}
	return nil
}

func (q *queries) LockProduct(ctx context.Context, sku string) error {
	if _, err := q.ext.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, sku); err != nil {
		return fmt.Errorf("error locking product %s: %w", sku, err)
	}
	return nil
}

func (q *queries) GetForecast(ctx context.Context, sku string, date time.Time) (*domain.Forecast, error) {
	var f domain.Forecast
	err := sqlx.GetContext(ctx, q.ext, &f, `
		SELECT product_sku, forecast_date, quantity
		FROM forecasts
		WHERE product_sku = $1 AND forecast_date = $2
	`, sku, dateArg(date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting forecast: %w", err)
	}
	f.Date = domain.Day(f.Date)
	return &f, nil
}

func (q *queries) UpsertForecast(ctx context.Context, f domain.Forecast) error {
	_, err := q.ext.ExecContext(ctx, `
		INSERT INTO forecasts (product_sku, forecast_date, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_sku, forecast_date)
		DO UPDATE SET quantity = EXCLUDED.quantity
	`, f.ProductSKU, dateArg(f.Date), f.Quantity)
	if err != nil {
		return fmt.Errorf("error upserting forecast: %w", err)
	}
	return nil
}

func (q *queries) ListForecasts(ctx context.Context, sku string, from, to time.Time) ([]domain.Forecast, error) {
	var forecasts []domain.Forecast
	err := sqlx.SelectContext(ctx, q.ext, &forecasts, `
		SELECT product_sku, forecast_date, quantity
		FROM forecasts
		WHERE product_sku = $1
		  AND ($2::date IS NULL OR forecast_date >= $2::date)
		  AND ($3::date IS NULL OR forecast_date <= $3::date)
		ORDER BY forecast_date
	`, sku, nullableDate(from), nullableDate(to))
	if err != nil {
		return nil, fmt.Errorf("error listing forecasts: %w", err)
	}
	for i := range forecasts {
		forecasts[i].Date = domain.Day(forecasts[i].Date)
	}
	return forecasts, nil
}

func (q *queries) RecentForecastActualPairs(ctx context.Context, sku string, limit int) ([]domain.ForecastActual, error) {
	if limit <= 0 {
		limit = repository.DefaultErrorWindow
	}
	var pairs []domain.ForecastActual
	err := sqlx.SelectContext(ctx, q.ext, &pairs, `
		SELECT f.forecast_date AS pair_date, f.quantity AS predicted, s.quantity AS actual
		FROM forecasts f
		JOIN sales s ON s.product_sku = f.product_sku AND s.sale_date = f.forecast_date
		WHERE f.product_sku = $1
		ORDER BY f.forecast_date DESC
		LIMIT $2
	`, sku, limit)
	if err != nil {
		return nil, fmt.Errorf("error loading forecast errors: %w", err)
	}
	return pairs, nil
}

func (q *queries) GetSale(ctx context.Context, sku string, date time.Time) (*domain.Sale, error) {
	var s domain.Sale
	err := sqlx.GetContext(ctx, q.ext, &s, `
		SELECT id, product_sku, sale_date, quantity FROM sales
		WHERE product_sku = $1 AND sale_date = $2
	`, sku, dateArg(date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting sale: %w", err)
	}
	s.Date = domain.Day(s.Date)
	return &s, nil
}

func (q *queries) RecordSale(ctx context.Context, sale domain.Sale) error {
	_, err := q.ext.ExecContext(ctx, `
		INSERT INTO sales (product_sku, sale_date, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_sku, sale_date)
		DO UPDATE SET quantity = sales.quantity + EXCLUDED.quantity
	`, sale.ProductSKU, dateArg(sale.Date), sale.Quantity)
	if err != nil {
		return fmt.Errorf("error recording sale: %w", err)
	}
	return nil
}

func (q *queries) ListSales(ctx context.Context, sku string, from, to time.Time) ([]domain.Sale, error) {
	var sales []domain.Sale
	err := sqlx.SelectContext(ctx, q.ext, &sales, `
		SELECT id, product_sku, sale_date, quantity
		FROM sales
		WHERE product_sku = $1
		  AND ($2::date IS NULL OR sale_date >= $2::date)
		  AND ($3::date IS NULL OR sale_date <= $3::date)
		ORDER BY sale_date
	`, sku, nullableDate(from), nullableDate(to))
	if err != nil {
		return nil, fmt.Errorf("error listing sales: %w", err)
	}
	for i := range sales {
		sales[i].Date = domain.Day(sales[i].Date)
	}
	return sales, nil
}

func (q *queries) AverageDemand(ctx context.Context, sku string) (float64, error) {
	var avg float64
	err := sqlx.GetContext(ctx, q.ext, &avg,
		`SELECT COALESCE(AVG(quantity), 0) FROM sales WHERE product_sku = $1`, sku)
	if err != nil {
		return 0, fmt.Errorf("error computing average demand: %w", err)
	}
	return avg, nil
}

func (q *queries) CreateBatch(ctx context.Context, b *domain.Batch) error {
	var id int64
	err := sqlx.GetContext(ctx, q.ext, &id, `
		INSERT INTO batches (product_sku, gross_quantity, net_quantity, age_days, status,
			withdrawal_date, sale_eligible_date, expiration_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_sku, withdrawal_date) DO NOTHING
		RETURNING id
	`, b.ProductSKU, b.GrossQuantity, b.NetQuantity, b.AgeDays, string(b.Status),
		dateArg(b.WithdrawalDate), dateArg(b.SaleEligibleDate), dateArg(b.ExpirationDate))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s on %s", domain.ErrBatchExists, b.ProductSKU, dateArg(b.WithdrawalDate))
	}
	if err != nil {
		return fmt.Errorf("error creating batch: %w", err)
	}
	b.ID = id
	return nil
}

func (q *queries) GetWithdrawal(ctx context.Context, sku string, date time.Time) (*domain.Batch, error) {
	batches, err := q.selectBatches(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE product_sku = $1 AND withdrawal_date = $2`,
		sku, dateArg(date))
	if err != nil {
		return nil, fmt.Errorf("error getting withdrawal: %w", err)
	}
	if len(batches) == 0 {
		return nil, nil
	}
	return &batches[0], nil
}

func (q *queries) ListOpenBatches(ctx context.Context, sku string) ([]domain.Batch, error) {
	batches, err := q.selectBatches(ctx, `
		SELECT `+batchColumns+`
		FROM batches
		WHERE status NOT IN ('expired', 'sold_out')
		  AND ($1 = '' OR product_sku = $1)
		ORDER BY product_sku, withdrawal_date, id
		FOR UPDATE
	`, sku)
	if err != nil {
		return nil, fmt.Errorf("error listing open batches: %w", err)
	}
	return batches, nil
}

func (q *queries) ListEligibleBatches(ctx context.Context, sku string, date time.Time) ([]domain.Batch, error) {
	batches, err := q.selectBatches(ctx, `
		SELECT `+batchColumns+`
		FROM batches
		WHERE product_sku = $1
		  AND status IN ('available', 'surplus')
		  AND sale_eligible_date <= $2
		ORDER BY (status = 'surplus') DESC, net_quantity ASC, withdrawal_date ASC, id ASC
		FOR UPDATE
	`, sku, dateArg(date))
	if err != nil {
		return nil, fmt.Errorf("error listing eligible batches: %w", err)
	}
	return batches, nil
}

func (q *queries) ListBatches(ctx context.Context, sku string) ([]domain.Batch, error) {
	batches, err := q.selectBatches(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE product_sku = $1 ORDER BY withdrawal_date DESC, id DESC`, sku)
	if err != nil {
		return nil, fmt.Errorf("error listing batches: %w", err)
	}
	return batches, nil
}

func (q *queries) UpdateBatch(ctx context.Context, id int64, net decimal.Decimal, status domain.BatchStatus, ageDays int) error {
	res, err := q.ext.ExecContext(ctx, `
		UPDATE batches SET net_quantity = $2, status = $3, age_days = $4 WHERE id = $1
	`, id, net, string(status), ageDays)
	if err != nil {
		return fmt.Errorf("error updating batch %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("batch %d not found", id)
	}
	return nil
}

func (q *queries) GetRunControl(ctx context.Context, routine string) (*domain.RunControl, error) {
	var rc domain.RunControl
	err := sqlx.GetContext(ctx, q.ext, &rc,
		`SELECT routine_name, last_run_date FROM run_control WHERE routine_name = $1`, routine)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting run control: %w", err)
	}
	rc.LastRunDate = domain.Day(rc.LastRunDate)
	return &rc, nil
}

func (q *queries) SetRunControl(ctx context.Context, routine string, date time.Time) error {
	_, err := q.ext.ExecContext(ctx, `
		INSERT INTO run_control (routine_name, last_run_date)
		VALUES ($1, $2)
		ON CONFLICT (routine_name) DO UPDATE SET last_run_date = EXCLUDED.last_run_date
	`, routine, dateArg(date))
	if err != nil {
		return fmt.Errorf("error setting run control: %w", err)
	}
	return nil
}

func (q *queries) ClaimRunControl(ctx context.Context, routine string, date time.Time) (bool, error) {
	var claimed string
	err := sqlx.GetContext(ctx, q.ext, &claimed, `
		INSERT INTO run_control (routine_name, last_run_date)
		VALUES ($1, $2)
		ON CONFLICT (routine_name) DO UPDATE SET last_run_date = EXCLUDED.last_run_date
		WHERE run_control.last_run_date IS DISTINCT FROM EXCLUDED.last_run_date
		RETURNING routine_name
	`, routine, dateArg(date))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error claiming run control: %w", err)
	}
	return true, nil
}
