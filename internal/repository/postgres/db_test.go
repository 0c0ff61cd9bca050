package postgres

import (
	"testing"
	"time"

	"github.com/andresuchdata/thawflow/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestConnString(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p", DBName: "thaw", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=thaw sslmode=disable", ConnString(cfg))

	cfg.URL = "postgres://u:p@db:5432/thaw"
	assert.Equal(t, "postgres://u:p@db:5432/thaw", ConnString(cfg))
}

func TestDriverName(t *testing.T) {
	assert.Equal(t, "pgx", driverName("pgx"))
	assert.Equal(t, "postgres", driverName("postgres"))
	assert.Equal(t, "postgres", driverName(""))
}

func TestDateArgs(t *testing.T) {
	local := time.Date(2025, 3, 10, 23, 30, 0, 0, time.FixedZone("BRT", -3*3600))
	assert.Equal(t, "2025-03-10", dateArg(local))
	assert.Nil(t, nullableDate(time.Time{}))
	assert.Equal(t, "2025-03-10", nullableDate(local))
}
