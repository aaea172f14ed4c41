package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"furnistore/internal/model"
	"furnistore/internal/repository"
)

// GuestCartStore keeps guest carts in a Redis hash per guest, one field per
// composite cart key. Every write refreshes the TTL.
type GuestCartStore struct {
	c   *Client
	ttl time.Duration
}

// NewGuestCartStore creates a guest cart store with the given idle TTL.
func NewGuestCartStore(c *Client, ttl time.Duration) *GuestCartStore {
	return &GuestCartStore{c: c, ttl: ttl}
}

var _ repository.CartRepository = (*GuestCartStore)(nil)

func guestCartKey(guestID string) string {
	return fmt.Sprintf("cart:guest:%s", guestID)
}

// Items returns the guest's lines ordered by the time they were added.
func (s *GuestCartStore) Items(ctx context.Context, guestID string) ([]model.CartItem, error) {
	fields, err := s.c.rdb.HGetAll(ctx, guestCartKey(guestID)).Result()
	if err != nil {
		return nil, err
	}

	items := make([]model.CartItem, 0, len(fields))
	for field, raw := range fields {
		var it model.CartItem
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			return nil, fmt.Errorf("decode guest cart line %s: %w", field, err)
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].Key < items[j].Key
		}
		return items[i].AddedAt.Before(items[j].AddedAt)
	})
	return items, nil
}

// SaveItem writes a line and refreshes the cart TTL.
func (s *GuestCartStore) SaveItem(ctx context.Context, guestID string, it model.CartItem) error {
	raw, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("encode guest cart line: %w", err)
	}
	key := guestCartKey(guestID)
	pipe := s.c.rdb.TxPipeline()
	pipe.HSet(ctx, key, it.Key, raw)
	pipe.Expire(ctx, key, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// RemoveItem deletes one line and refreshes the cart TTL.
func (s *GuestCartStore) RemoveItem(ctx context.Context, guestID, itemKey string) error {
	key := guestCartKey(guestID)
	pipe := s.c.rdb.TxPipeline()
	pipe.HDel(ctx, key, itemKey)
	pipe.Expire(ctx, key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Clear deletes the whole guest cart.
func (s *GuestCartStore) Clear(ctx context.Context, guestID string) error {
	return s.c.rdb.Del(ctx, guestCartKey(guestID)).Err()
}
