package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/thawflow/internal/config"
	"github.com/andresuchdata/thawflow/internal/domain"
	"github.com/redis/go-redis/v9"
)

const batchSummaryKeyPrefix = "batches:summary"

// SummaryQuery identifies one cached view of a SKU's batches.
type SummaryQuery struct {
	SKU         string
	AsOf        time.Time
	HistoryDays int
}

type BatchSummaryCache interface {
	GetSummary(ctx context.Context, q SummaryQuery) (*domain.BatchSummary, bool, error)
	SetSummary(ctx context.Context, q SummaryQuery, summary *domain.BatchSummary) error
	InvalidateSKU(ctx context.Context, sku string) error
	InvalidateAll(ctx context.Context) error
}

type redisBatchSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopBatchSummaryCache struct{}

func NewBatchSummaryCache(cfg config.CacheConfig) (BatchSummaryCache, error) {
	if !cfg.Enabled {
		return &noopBatchSummaryCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisBatchSummaryCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopBatchSummaryCache() BatchSummaryCache {
	return &noopBatchSummaryCache{}
}

func (c *redisBatchSummaryCache) GetSummary(ctx context.Context, q SummaryQuery) (*domain.BatchSummary, bool, error) {
	payload, err := c.client.Get(ctx, buildBatchSummaryKey(q)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var summary domain.BatchSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, false, fmt.Errorf("decode batch summary cache: %w", err)
	}

	return &summary, true, nil
}

func (c *redisBatchSummaryCache) SetSummary(ctx context.Context, q SummaryQuery, summary *domain.BatchSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode batch summary cache: %w", err)
	}

	if err := c.client.Set(ctx, buildBatchSummaryKey(q), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisBatchSummaryCache) InvalidateSKU(ctx context.Context, sku string) error {
	return deleteKeysWithPrefix(ctx, c.client, skuKeyPrefix(sku), scanBatchSize)
}

func (c *redisBatchSummaryCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, batchSummaryKeyPrefix+":", scanBatchSize)
}

func (n *noopBatchSummaryCache) GetSummary(ctx context.Context, q SummaryQuery) (*domain.BatchSummary, bool, error) {
	return nil, false, nil
}

func (n *noopBatchSummaryCache) SetSummary(ctx context.Context, q SummaryQuery, summary *domain.BatchSummary) error {
	return nil
}

func (n *noopBatchSummaryCache) InvalidateSKU(ctx context.Context, sku string) error {
	return nil
}

func (n *noopBatchSummaryCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func skuKeyPrefix(sku string) string {
	return fmt.Sprintf("%s:%s:", batchSummaryKeyPrefix, strings.TrimSpace(sku))
}

// buildBatchSummaryKey is prefix:SKU:hash so one SKU's entries can be dropped
// with a single prefix scan.
func buildBatchSummaryKey(q SummaryQuery) string {
	parts := []string{"as_of=default"}
	if !q.AsOf.IsZero() {
		parts[0] = "as_of=" + domain.Day(q.AsOf).Format(domain.DateLayout)
	}
	if q.HistoryDays > 0 {
		parts = append(parts, fmt.Sprintf("history=%d", q.HistoryDays))
	}

	raw := strings.Join(parts, "|")
	hash := sha1.Sum([]byte(raw))
	return skuKeyPrefix(q.SKU) + hex.EncodeToString(hash[:])
}
