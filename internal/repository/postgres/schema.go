package postgres

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS products (
		sku        TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		category   TEXT NOT NULL DEFAULT 'Unknown',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS batches (
		id                 BIGSERIAL PRIMARY KEY,
		product_sku        TEXT NOT NULL REFERENCES products(sku),
		gross_quantity     NUMERIC NOT NULL CHECK (gross_quantity >= 0),
		net_quantity       NUMERIC NOT NULL CHECK (net_quantity >= 0),
		age_days           INTEGER NOT NULL DEFAULT 0,
		status             TEXT NOT NULL,
		withdrawal_date    DATE NOT NULL,
		sale_eligible_date DATE NOT NULL,
		expiration_date    DATE NOT NULL,
		UNIQUE (product_sku, withdrawal_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_batches_sku_status ON batches (product_sku, status)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id          BIGSERIAL PRIMARY KEY,
		product_sku TEXT NOT NULL REFERENCES products(sku),
		sale_date   DATE NOT NULL,
		quantity    DOUBLE PRECISION NOT NULL CHECK (quantity >= 0),
		UNIQUE (product_sku, sale_date)
	)`,
	`CREATE TABLE IF NOT EXISTS forecasts (
		product_sku   TEXT NOT NULL REFERENCES products(sku),
		forecast_date DATE NOT NULL,
		quantity      DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (product_sku, forecast_date)
	)`,
	`CREATE TABLE IF NOT EXISTS run_control (
		routine_name  TEXT PRIMARY KEY,
		last_run_date DATE NOT NULL
	)`,
}

// Migrate creates the schema if it does not exist.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error applying migration %d: %w", i+1, err)
		}
	}
	log.Info().Int("statements", len(migrations)).Msg("schema up to date")
	return nil
}
