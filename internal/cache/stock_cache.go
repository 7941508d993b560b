package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"sitesupply/internal/config"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// StockCache keeps the latest snapshot per (product, site) scope in Redis.
type StockCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to Redis and pings it.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func NewStockCache(client *redis.Client, ttl time.Duration) *StockCache {
	return &StockCache{client: client, ttl: ttl}
}

// Get returns the cached quantity and whether it was present.
func (c *StockCache) Get(ctx context.Context, productID uuid.UUID, siteID *uuid.UUID) (int, bool, error) {
	val, err := c.client.Get(ctx, Key(productID, siteID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	qty, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt stock cache entry: %w", err)
	}
	return qty, true, nil
}

func (c *StockCache) Set(ctx context.Context, productID uuid.UUID, siteID *uuid.UUID, qty int) error {
	return c.client.Set(ctx, Key(productID, siteID), strconv.Itoa(qty), c.ttl).Err()
}

func (c *StockCache) Invalidate(ctx context.Context, productID uuid.UUID, siteID *uuid.UUID) error {
	return c.client.Del(ctx, Key(productID, siteID)).Err()
}

// Key is "stock:<product>:general" or "stock:<product>:<site>".
func Key(productID uuid.UUID, siteID *uuid.UUID) string {
	if siteID == nil {
		return "stock:" + productID.String() + ":general"
	}
	return "stock:" + productID.String() + ":" + siteID.String()
}
