package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/thawflow/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

const defaultMaxTx = 10

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

var (
	dbInstance *DB
	once       sync.Once
)

// ConnString builds a DSN from the config, preferring DATABASE_URL when set.
func ConnString(cfg *config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// driverName maps DB_DRIVER to a registered database/sql driver.
func driverName(driver string) string {
	switch driver {
	case "pgx":
		return "pgx"
	default:
		return "postgres"
	}
}

// NewDB creates a new database connection pool
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	var err error
	once.Do(func() {
		var db *sqlx.DB
		db, err = Open(driverName(cfg.Driver), ConnString(cfg))
		if err != nil {
			return
		}

		maxTx := cfg.MaxTx
		if maxTx <= 0 {
			maxTx = defaultMaxTx
		}
		dbInstance = &DB{
			DB:  db,
			sem: semaphore.NewWeighted(maxTx),
		}
	})

	return dbInstance, err
}

// Open connects without touching the shared instance. The seed CLI uses it
// so each command owns its pool.
func Open(driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// Wrap bounds an existing pool with the transaction semaphore.
func Wrap(db *sqlx.DB, maxTx int64) *DB {
	if maxTx <= 0 {
		maxTx = defaultMaxTx
	}
	return &DB{DB: db, sem: semaphore.NewWeighted(maxTx)}
}

// WithTx executes a function within a transaction
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}
