package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"furnistore/internal/database"
	"furnistore/internal/model"
	"furnistore/internal/repository"
)

const orderColumns = `id, user_id, status, items, shipping_address, payment_method, notes, subtotal_cents, shipping_cents, tax_cents, total_cents, status_history, created_at, updated_at`

// OrderPostgres is a PostgreSQL implementation of repository.OrderRepository.
// Line items, the shipping address and the status history are JSONB documents.
type OrderPostgres struct {
	db *sql.DB
}

// NewOrderPostgres creates a new OrderPostgres repository.
func NewOrderPostgres(db *sql.DB) *OrderPostgres {
	return &OrderPostgres{db: db}
}

var _ repository.OrderRepository = (*OrderPostgres)(nil)

func scanOrder(s scanner) (*model.Order, error) {
	var (
		o       model.Order
		items   []byte
		address []byte
		history []byte
	)
	if err := s.Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&items,
		&address,
		&o.PaymentMethod,
		&o.Notes,
		&o.SubtotalCents,
		&o.ShippingCents,
		&o.TaxCents,
		&o.TotalCents,
		&history,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if err := unmarshalJSONB(address, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	if err := unmarshalJSONB(history, &o.StatusHistory); err != nil {
		return nil, fmt.Errorf("decode status history: %w", err)
	}
	return &o, nil
}

// Create reserves stock, inserts the order and removes the ordered lines
// from the user's cart atomically.
func (r *OrderPostgres) Create(ctx context.Context, o *model.Order) (*model.Order, error) {
	items, err := marshalJSONB(o.Items, "[]")
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	history, err := marshalJSONB(o.StatusHistory, "[]")
	if err != nil {
		return nil, fmt.Errorf("encode status history: %w", err)
	}
	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("encode shipping address: %w", err)
	}

	var out *model.Order
	err = database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		const qReserve = `UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1 AND stock >= $2`
		for _, it := range o.Items {
			res, err := tx.ExecContext(ctx, qReserve, it.ProductID, it.Quantity)
			if err != nil {
				return fmt.Errorf("reserve stock: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("reserve stock: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("%w: product %s", repository.ErrInsufficientStock, it.ProductID)
			}
		}

		qInsert := `
			INSERT INTO orders (` + orderColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING ` + orderColumns
		row := tx.QueryRowContext(ctx, qInsert,
			o.ID,
			o.UserID,
			o.Status,
			items,
			string(address),
			o.PaymentMethod,
			o.Notes,
			o.SubtotalCents,
			o.ShippingCents,
			o.TaxCents,
			o.TotalCents,
			history,
			o.CreatedAt,
			o.UpdatedAt,
		)
		stored, err := scanOrder(row)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		// Only the ordered quantities leave the cart; lines added or raised
		// after the cart was priced stay behind.
		const (
			qDropLine = `DELETE FROM cart_items WHERE user_id = $1 AND item_key = $2 AND quantity <= $3`
			qTrimLine = `UPDATE cart_items SET quantity = quantity - $3 WHERE user_id = $1 AND item_key = $2 AND quantity > $3`
		)
		for _, it := range o.Items {
			key := model.CartKey(it.ProductID, it.VariantID)
			if _, err := tx.ExecContext(ctx, qDropLine, o.UserID, key, it.Quantity); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
			if _, err := tx.ExecContext(ctx, qTrimLine, o.UserID, key, it.Quantity); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
		}

		out = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindByID fetches a single order by its ID.
func (r *OrderPostgres) FindByID(ctx context.Context, id string) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.db.QueryRowContext(ctx, q, id))
}

// List returns orders newest first using LIMIT/OFFSET pagination and a total count.
func (r *OrderPostgres) List(ctx context.Context, f model.OrderFilter, pq repository.PageQuery) (*repository.PageResult[model.Order], error) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	qList := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, qList, append(args, pq.Limit, pq.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Order]{Items: items, Total: total}, nil
}

// UpdateStatus applies a status change guarded by the expected current status.
func (r *OrderPostgres) UpdateStatus(ctx context.Context, id string, from model.OrderStatus, change model.StatusChange) (*model.Order, error) {
	entry, err := json.Marshal([]model.StatusChange{change})
	if err != nil {
		return nil, fmt.Errorf("encode status change: %w", err)
	}

	var out *model.Order
	err = database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		qUpdate := `
			UPDATE orders
			SET status = $3, status_history = status_history || $4::jsonb, updated_at = $5
			WHERE id = $1 AND status = $2
			RETURNING ` + orderColumns
		o, err := scanOrder(tx.QueryRowContext(ctx, qUpdate, id, from, change.To, string(entry), change.At))
		if errors.Is(err, sql.ErrNoRows) {
			var current string
			if err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current); err != nil {
				return err
			}
			return fmt.Errorf("%w: expected %s, found %s", repository.ErrStatusConflict, from, current)
		}
		if err != nil {
			return err
		}

		if change.To.ReleasesStock() {
			const qRelease = `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`
			for _, it := range o.Items {
				if _, err := tx.ExecContext(ctx, qRelease, it.ProductID, it.Quantity); err != nil {
					return fmt.Errorf("release stock: %w", err)
				}
			}
		}

		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StatusCounts groups orders by status.
func (r *OrderPostgres) StatusCounts(ctx context.Context) (map[model.OrderStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.OrderStatus]int, len(model.AllOrderStatuses))
	for _, s := range model.AllOrderStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var (
			status model.OrderStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Revenue sums order totals, excluding cancelled and failed orders.
func (r *OrderPostgres) Revenue(ctx context.Context) (int64, error) {
	const q = `SELECT COALESCE(SUM(total_cents), 0) FROM orders WHERE status NOT IN ($1, $2)`
	var total int64
	err := r.db.QueryRowContext(ctx, q, model.OrderCancelled, model.OrderFailed).Scan(&total)
	return total, err
}
