package repository

import (
	"context"

	"furnistore/internal/model"
)

// ProductRepository defines data access for the catalog.
// No business logic here, strictly persistence.
type ProductRepository interface {
	// Create inserts a product. The caller provides ID, Slug and timestamps.
	Create(ctx context.Context, p *model.Product) (*model.Product, error)

	// FindByID returns a product by its ID or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Product, error)

	// FindBySlug returns a product by its slug or sql.ErrNoRows.
	FindBySlug(ctx context.Context, slug string) (*model.Product, error)

	// List returns a filtered, paginated list of products and the total count.
	List(ctx context.Context, f model.ProductFilter, pq PageQuery) (*PageResult[model.Product], error)

	// Update overwrites the mutable fields of a product.
	Update(ctx context.Context, p *model.Product) (*model.Product, error)

	// Delete removes a product by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error

	// AdjustStock adds delta to the product stock and returns the new level.
	// It returns ErrInsufficientStock if the result would be negative.
	AdjustStock(ctx context.Context, id string, delta int) (int, error)

	// LowStock returns active products whose stock is at or below threshold.
	LowStock(ctx context.Context, threshold, limit int) ([]model.Product, error)

	// Count returns the number of products.
	Count(ctx context.Context) (int, error)
}
