package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"furnistore/internal/config"
)

// Client wraps the Redis connection shared by guest carts and the catalog cache.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to Redis and verifies the connection.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Ping checks that Redis is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
