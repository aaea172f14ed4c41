package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"furnistore/internal/model"
)

// ProductCache is a read-through cache of catalog entries keyed by product ID.
type ProductCache struct {
	c   *Client
	ttl time.Duration
}

// NewProductCache creates a product cache with the given entry TTL.
func NewProductCache(c *Client, ttl time.Duration) *ProductCache {
	return &ProductCache{c: c, ttl: ttl}
}

func productKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}

// Get returns the cached product. A miss is reported as (nil, false, nil).
func (pc *ProductCache) Get(ctx context.Context, id string) (*model.Product, bool, error) {
	raw, err := pc.c.rdb.Get(ctx, productKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var p model.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		// Corrupt entries are dropped and treated as a miss.
		_ = pc.c.rdb.Del(ctx, productKey(id)).Err()
		return nil, false, nil
	}
	return &p, true, nil
}

// Set stores a product for the configured TTL.
func (pc *ProductCache) Set(ctx context.Context, p *model.Product) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return pc.c.rdb.Set(ctx, productKey(p.ID), raw, pc.ttl).Err()
}

// Invalidate drops a product from the cache.
func (pc *ProductCache) Invalidate(ctx context.Context, id string) error {
	return pc.c.rdb.Del(ctx, productKey(id)).Err()
}
