// Package migration creates the storefront schema on startup.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"furnistore/internal/database"
	"furnistore/internal/logging"
)

type migrationStep struct {
	Name string
	SQL  string
}

const (
	// sentinelTable is created by the last steps; its presence means the schema is current.
	sentinelTable = "public.orders"
	// lockID serializes migrations across API replicas and storectl runs.
	lockID int64 = 0x66757273746f7265
)

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id           TEXT        PRIMARY KEY,
  email        TEXT        NOT NULL,
  display_name TEXT        NOT NULL DEFAULT '',
  phone        TEXT        NOT NULL DEFAULT '',
  role         TEXT        NOT NULL DEFAULT 'customer' CHECK (role IN ('customer', 'admin')),
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_products",
		SQL: `CREATE TABLE IF NOT EXISTS products (
  id          UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name        TEXT        NOT NULL,
  slug        TEXT        NOT NULL UNIQUE,
  description TEXT        NOT NULL DEFAULT '',
  category    TEXT        NOT NULL DEFAULT '',
  price_cents BIGINT      NOT NULL CHECK (price_cents >= 0),
  stock       INTEGER     NOT NULL DEFAULT 0 CHECK (stock >= 0),
  images      JSONB       NOT NULL DEFAULT '[]',
  variants    JSONB       NOT NULL DEFAULT '[]',
  active      BOOLEAN     NOT NULL DEFAULT true,
  featured    BOOLEAN     NOT NULL DEFAULT false,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_products_category",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_products_category ON products (category);`,
	},
	{
		Name: "create_index_products_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_products_created_at ON products (created_at);`,
	},
	{
		Name: "create_table_cart_items",
		SQL: `CREATE TABLE IF NOT EXISTS cart_items (
  user_id          TEXT        NOT NULL,
  item_key         TEXT        NOT NULL,
  product_id       UUID        NOT NULL,
  variant_id       TEXT        NOT NULL DEFAULT '',
  variant_name     TEXT        NOT NULL DEFAULT '',
  name             TEXT        NOT NULL,
  image_url        TEXT        NOT NULL DEFAULT '',
  unit_price_cents BIGINT      NOT NULL CHECK (unit_price_cents >= 0),
  quantity         INTEGER     NOT NULL CHECK (quantity > 0),
  added_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (user_id, item_key)
);`,
	},
	{
		Name: "create_table_orders",
		SQL: `CREATE TABLE IF NOT EXISTS orders (
  id               UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  user_id          TEXT        NOT NULL,
  status           TEXT        NOT NULL,
  items            JSONB       NOT NULL,
  shipping_address JSONB       NOT NULL,
  payment_method   TEXT        NOT NULL,
  notes            TEXT        NOT NULL DEFAULT '',
  subtotal_cents   BIGINT      NOT NULL,
  shipping_cents   BIGINT      NOT NULL,
  tax_cents        BIGINT      NOT NULL,
  total_cents      BIGINT      NOT NULL,
  status_history   JSONB       NOT NULL DEFAULT '[]',
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_orders_user_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id, created_at DESC);`,
	},
	{
		Name: "create_index_orders_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status);`,
	},
}

// EnsureMigrated creates the schema when the sentinel table is missing. All
// steps run in one transaction under an advisory lock, and the sentinel is
// checked again once the lock is held so concurrent starters migrate once.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()
	emit := func(event, status string, fields map[string]any) {
		entry := map[string]any{
			"component":   "database",
			"event":       event,
			"status":      status,
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		for k, v := range fields {
			entry[k] = v
		}
		logging.JSON(loc, entry)
	}

	exists, err := schemaExists(ctx, db)
	if err != nil {
		emit("db_migration_failed", "error", map[string]any{"error_message": err.Error()})
		return err
	}
	if exists {
		emit("db_migration_skip", "success", nil)
		return nil
	}

	emit("db_migration_start", "in_progress", map[string]any{"steps": len(steps)})

	applied := 0
	err = database.WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockID); err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		if done, err := schemaExists(ctx, tx); err != nil || done {
			return err
		}
		for _, step := range steps {
			stepStart := time.Now()
			if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
				emit("db_migration_failed", "error", map[string]any{
					"migration_step": step.Name,
					"error_message":  err.Error(),
				})
				return fmt.Errorf("migration step %s failed: %w", step.Name, err)
			}
			applied++
			emit("db_migration_step", "success", map[string]any{
				"migration_step":   step.Name,
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	emit("db_migration_success", "success", map[string]any{"applied": applied})
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func schemaExists(ctx context.Context, q queryer) (bool, error) {
	var exists bool
	if err := q.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", sentinelTable).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check sentinel table: %w", err)
	}
	return exists, nil
}
