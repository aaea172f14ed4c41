package repository

import (
	"context"

	"furnistore/internal/model"
)

// CartRepository stores cart lines for one owner, keyed by model.CartKey.
// Signed-in carts live in Postgres, guest carts in Redis.
type CartRepository interface {
	// Items returns the owner's lines ordered by the time they were added.
	Items(ctx context.Context, ownerID string) ([]model.CartItem, error)

	// SaveItem inserts or replaces the line with item.Key.
	SaveItem(ctx context.Context, ownerID string, item model.CartItem) error

	// RemoveItem deletes a line. Missing lines are not an error.
	RemoveItem(ctx context.Context, ownerID, key string) error

	// Clear deletes every line of the owner.
	Clear(ctx context.Context, ownerID string) error
}
