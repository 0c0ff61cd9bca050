package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/thawflow/internal/config"
	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBatchSummaryKey(t *testing.T) {
	asOf := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	a := buildBatchSummaryKey(SummaryQuery{SKU: "ABC", AsOf: asOf, HistoryDays: 14})
	b := buildBatchSummaryKey(SummaryQuery{SKU: " ABC ", AsOf: domain.Day(asOf), HistoryDays: 14})
	c := buildBatchSummaryKey(SummaryQuery{SKU: "ABC", AsOf: asOf, HistoryDays: 7})

	assert.Equal(t, a, b, "padding and time of day do not change the key")
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "batches:summary:ABC:"))
	assert.True(t, strings.HasPrefix(a, skuKeyPrefix("ABC")))
}

func TestNewBatchSummaryCacheDisabled(t *testing.T) {
	ctx := context.Background()
	c, err := NewBatchSummaryCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	q := SummaryQuery{SKU: "A"}
	require.NoError(t, c.SetSummary(ctx, q, &domain.BatchSummary{}))
	got, ok, err := c.GetSummary(ctx, q)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.NoError(t, c.InvalidateSKU(ctx, "A"))
	assert.NoError(t, c.InvalidateAll(ctx))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@example:6379/3"})
	require.NoError(t, err)
	assert.Equal(t, "example:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)

	assert.Equal(t, defaultCacheTTL, cacheTTL(config.CacheConfig{}))
	assert.Equal(t, 30*time.Second, cacheTTL(config.CacheConfig{DashboardTTLSeconds: 30}))
}
