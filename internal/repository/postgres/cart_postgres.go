package postgres

import (
	"context"
	"database/sql"

	"furnistore/internal/model"
	"furnistore/internal/repository"
)

// CartPostgres stores signed-in carts, one row per (user, composite key).
type CartPostgres struct {
	db *sql.DB
}

// NewCartPostgres creates a new CartPostgres repository.
func NewCartPostgres(db *sql.DB) *CartPostgres {
	return &CartPostgres{db: db}
}

var _ repository.CartRepository = (*CartPostgres)(nil)

// Items returns the user's cart lines in the order they were added.
func (r *CartPostgres) Items(ctx context.Context, userID string) ([]model.CartItem, error) {
	const q = `
		SELECT item_key, product_id, variant_id, variant_name, name, image_url, unit_price_cents, quantity, added_at
		FROM cart_items
		WHERE user_id = $1
		ORDER BY added_at ASC, item_key ASC
	`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.CartItem, 0)
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(
			&it.Key,
			&it.ProductID,
			&it.VariantID,
			&it.VariantName,
			&it.Name,
			&it.ImageURL,
			&it.UnitPriceCents,
			&it.Quantity,
			&it.AddedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// SaveItem upserts a line. added_at is kept from the first insert.
func (r *CartPostgres) SaveItem(ctx context.Context, userID string, it model.CartItem) error {
	const q = `
		INSERT INTO cart_items (user_id, item_key, product_id, variant_id, variant_name, name, image_url, unit_price_cents, quantity, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, item_key) DO UPDATE
		SET variant_name = EXCLUDED.variant_name,
		    name = EXCLUDED.name,
		    image_url = EXCLUDED.image_url,
		    unit_price_cents = EXCLUDED.unit_price_cents,
		    quantity = EXCLUDED.quantity
	`
	_, err := r.db.ExecContext(ctx, q,
		userID,
		it.Key,
		it.ProductID,
		it.VariantID,
		it.VariantName,
		it.Name,
		it.ImageURL,
		it.UnitPriceCents,
		it.Quantity,
		it.AddedAt,
	)
	return err
}

// RemoveItem deletes one line; a missing line is not an error.
func (r *CartPostgres) RemoveItem(ctx context.Context, userID, key string) error {
	const q = `DELETE FROM cart_items WHERE user_id = $1 AND item_key = $2`
	_, err := r.db.ExecContext(ctx, q, userID, key)
	return err
}

// Clear deletes all lines of the user.
func (r *CartPostgres) Clear(ctx context.Context, userID string) error {
	const q = `DELETE FROM cart_items WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, q, userID)
	return err
}
