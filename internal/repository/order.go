package repository

import (
	"context"

	"furnistore/internal/model"
)

// OrderRepository defines data access for orders.
type OrderRepository interface {
	// Create reserves stock for every line, inserts the order and clears the
	// owner's signed-in cart in a single transaction. It returns
	// ErrInsufficientStock when any line cannot be reserved.
	Create(ctx context.Context, o *model.Order) (*model.Order, error)

	// FindByID returns an order by its ID or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Order, error)

	// List returns orders matching the filter, newest first, with the total count.
	List(ctx context.Context, f model.OrderFilter, pq PageQuery) (*PageResult[model.Order], error)

	// UpdateStatus moves an order from the expected status to change.To and
	// appends change to its history. Stock is released when change.To does so.
	// It returns ErrStatusConflict if the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from model.OrderStatus, change model.StatusChange) (*model.Order, error)

	// StatusCounts returns the number of orders per status.
	StatusCounts(ctx context.Context) (map[model.OrderStatus]int, error)

	// Revenue sums the totals of orders whose status counts as revenue.
	Revenue(ctx context.Context) (int64, error)
}
