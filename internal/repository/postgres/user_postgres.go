package postgres

import (
	"context"
	"database/sql"

	"furnistore/internal/model"
	"furnistore/internal/repository"
)

const userColumns = `id, email, display_name, phone, role, created_at, updated_at`

// UserPostgres is a PostgreSQL implementation of repository.UserRepository.
type UserPostgres struct {
	db *sql.DB
}

// NewUserPostgres creates a new UserPostgres repository.
func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	if err := s.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByID fetches a profile by auth subject.
func (r *UserPostgres) FindByID(ctx context.Context, id string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, q, id))
}

// Create inserts a profile, returning the existing row when the ID is taken.
func (r *UserPostgres) Create(ctx context.Context, u *model.User) (*model.User, error) {
	q := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, q,
		u.ID,
		u.Email,
		u.DisplayName,
		u.Phone,
		u.Role,
		u.CreatedAt,
		u.UpdatedAt,
	))
}

// Update overwrites the editable profile fields.
func (r *UserPostgres) Update(ctx context.Context, u *model.User) (*model.User, error) {
	q := `
		UPDATE users SET display_name = $2, phone = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, q, u.ID, u.DisplayName, u.Phone, u.UpdatedAt))
}

// List returns profiles newest first with a total count.
func (r *UserPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.User], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, err
	}

	q := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, q, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.User]{Items: items, Total: total}, nil
}
