// Package cache holds period-scoped sales and stock-entry lists in Redis so
// repeated report runs do not refetch unchanged data from the backend.
// Entries are keyed under a global version that every write bumps.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/3btraders/ims/internal/domain/shared"
	"github.com/3btraders/ims/internal/infrastructure/config"
	"github.com/3btraders/ims/internal/infrastructure/logger"
)

const (
	keyPrefix  = "ims:report"
	versionKey = keyPrefix + ":version"
)

// Kinds of cached record lists.
const (
	KindSales = "sales"
	KindStock = "stock"
)

// Observer receives one call per lookup.
type Observer interface {
	ObserveCache(kind string, hit bool)
}

// ReportCache is a versioned JSON cache. A nil *ReportCache is valid and
// always calls the loader.
type ReportCache struct {
	client   *redis.Client
	ttl      time.Duration
	observer Observer
	logger   *zap.Logger
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewReportCache wraps an existing client. observer and log may be nil.
func NewReportCache(client *redis.Client, ttl time.Duration, observer Observer, log *zap.Logger) *ReportCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportCache{client: client, ttl: ttl, observer: observer, logger: log.Named("report_cache")}
}

// Version returns the current cache version, initialising it when missing.
func (c *ReportCache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) || (err == nil && ver <= 0) {
		// SETNX keeps a concurrent Bump from being overwritten.
		if err := c.client.SetNX(ctx, versionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, versionKey).Int64()
	}
	return ver, err
}

// Bump invalidates every cached list.
func (c *ReportCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
		logger.WithLogger(ctx, c.logger).Warn("Cache bump failed", zap.Error(err))
		return err
	}
	return nil
}

// Key composes the cache key for a record list of one shop and period.
func Key(kind string, shopID shared.ID, period shared.Period, version int64) string {
	return strings.Join([]string{
		keyPrefix, kind, shopID.String(), period.Start, period.End, strconv.FormatInt(version, 10),
	}, ":")
}

func (c *ReportCache) observe(kind string, hit bool) {
	if c.observer != nil {
		c.observer.ObserveCache(kind, hit)
	}
}

// Fetch returns the cached list for (kind, shop, period) or loads and stores
// it. Redis failures degrade to calling the loader; loader errors are never
// cached.
func Fetch[T any](ctx context.Context, c *ReportCache, kind string, shopID shared.ID, period shared.Period,
	loader func(context.Context) (T, error)) (T, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	log := logger.WithLogger(ctx, c.logger)

	ver, err := c.Version(ctx)
	if err != nil {
		log.Warn("Cache unavailable, loading directly", zap.Error(err))
		return loader(ctx)
	}
	key := Key(kind, shopID, period, ver)

	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out T
		if jerr := json.Unmarshal(payload, &out); jerr == nil {
			c.observe(kind, true)
			return out, nil
		}
		log.Warn("Discarding undecodable cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		log.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}
	c.observe(kind, false)

	value, err := loader(ctx)
	if err != nil {
		return value, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		log.Warn("Cannot encode cache entry", zap.String("key", key), zap.Error(err))
		return value, nil
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
