package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/andresuchdata/thawflow/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = time.Minute
	pingTimeout     = 5 * time.Second
	scanBatchSize   = 100
)

func newRedisClient(cfg config.CacheConfig) (*redis.Client, time.Duration, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, 0, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, 0, fmt.Errorf("redis ping %s failed: %w", opts.Addr, err)
	}

	return client, cacheTTL(cfg), nil
}

func cacheTTL(cfg config.CacheConfig) time.Duration {
	ttl := time.Duration(cfg.DashboardTTLSeconds) * time.Second
	if ttl <= 0 {
		return defaultCacheTTL
	}
	return ttl
}

func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host := cfg.RedisHost
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.RedisPort
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

// deleteKeysWithPrefix walks the keyspace with SCAN so large key sets never
// block the server the way KEYS would.
func deleteKeysWithPrefix(ctx context.Context, client *redis.Client, prefix string, batchSize int64) error {
	iter := client.Scan(ctx, 0, prefix+"*", batchSize).Iterator()
	keys := make([]string, 0, batchSize)

	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		if err := client.Unlink(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis unlink failed: %w", err)
		}
		keys = keys[:0]
		return nil
	}

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if int64(len(keys)) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	return flush()
}
