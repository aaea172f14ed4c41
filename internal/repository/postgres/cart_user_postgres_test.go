package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"furnistore/internal/model"
	"furnistore/internal/repository"
)

func TestCartPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCartPostgres(db)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("items", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"item_key", "product_id", "variant_id", "variant_name", "name", "image_url", "unit_price_cents", "quantity", "added_at"}).
			AddRow("p1", "p1", "", "", "Oak Table", "", int64(45000), 1, now).
			AddRow("p2:grey", "p2", "grey", "Grey", "Sofa", "http://img/s.jpg", int64(80000), 2, now)
		mock.ExpectQuery("SELECT (.+) FROM cart_items WHERE user_id = ?").
			WithArgs("u1").
			WillReturnRows(rows)

		items, err := repo.Items(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "p2:grey", items[1].Key)
		assert.Equal(t, 2, items[1].Quantity)
	})

	t.Run("save item upserts", func(t *testing.T) {
		it := model.CartItem{Key: "p2:grey", ProductID: "p2", VariantID: "grey", VariantName: "Grey", Name: "Sofa", UnitPriceCents: 80000, Quantity: 3, AddedAt: now}
		mock.ExpectExec("INSERT INTO cart_items (.+) ON CONFLICT \\(user_id, item_key\\) DO UPDATE").
			WithArgs("u1", "p2:grey", "p2", "grey", "Grey", "Sofa", "", int64(80000), 3, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SaveItem(ctx, "u1", it))
	})

	t.Run("remove and clear", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM cart_items WHERE user_id = \\$1 AND item_key = \\$2").
			WithArgs("u1", "p1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.RemoveItem(ctx, "u1", "p1"))

		mock.ExpectExec("DELETE FROM cart_items WHERE user_id = \\$1$").
			WithArgs("u1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.Clear(ctx, "u1"))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserPostgres(db)
	ctx := context.Background()
	now := time.Now().UTC()
	cols := []string{"id", "email", "display_name", "phone", "role", "created_at", "updated_at"}

	t.Run("find", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = ?").
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows(cols).AddRow("u1", "ada@example.com", "Ada", "", "admin", now, now))

		u, err := repo.FindByID(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, u.IsAdmin())

		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)
		_, err = repo.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("create", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO users (.+) ON CONFLICT \\(id\\)").
			WithArgs("u2", "bo@example.com", "Bo", "", "customer", now, now).
			WillReturnRows(sqlmock.NewRows(cols).AddRow("u2", "bo@example.com", "Bo", "", "customer", now, now))

		u, err := repo.Create(ctx, &model.User{ID: "u2", Email: "bo@example.com", DisplayName: "Bo", Role: model.RoleCustomer, CreatedAt: now, UpdatedAt: now})
		require.NoError(t, err)
		assert.Equal(t, model.RoleCustomer, u.Role)
	})

	t.Run("update", func(t *testing.T) {
		mock.ExpectQuery("UPDATE users SET display_name = \\$2, phone = \\$3").
			WithArgs("u2", "Bo B", "555", now).
			WillReturnRows(sqlmock.NewRows(cols).AddRow("u2", "bo@example.com", "Bo B", "555", "customer", now, now))

		u, err := repo.Update(ctx, &model.User{ID: "u2", DisplayName: "Bo B", Phone: "555", UpdatedAt: now})
		require.NoError(t, err)
		assert.Equal(t, "555", u.Phone)
	})

	t.Run("list", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectQuery("SELECT (.+) FROM users ORDER BY").
			WithArgs(10, 0).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("u2", "bo@example.com", "Bo", "", "customer", now, now).
				AddRow("u1", "ada@example.com", "Ada", "", "admin", now, now))

		res, err := repo.List(ctx, repository.PageQuery{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Total)
		assert.Len(t, res.Items, 2)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
