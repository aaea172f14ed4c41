package repository

import (
	"context"

	"furnistore/internal/model"
)

// UserRepository defines data access for customer and admin profiles.
type UserRepository interface {
	// FindByID returns a user by auth subject or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Create inserts a profile; an existing row with the same ID is returned unchanged.
	Create(ctx context.Context, u *model.User) (*model.User, error)

	// Update overwrites display name and phone.
	Update(ctx context.Context, u *model.User) (*model.User, error)

	// List returns users ordered by creation time, newest first.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.User], error)
}
