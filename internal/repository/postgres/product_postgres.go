package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"furnistore/internal/model"
	"furnistore/internal/repository"
)

const productColumns = `id, name, slug, description, category, price_cents, stock, images, variants, active, featured, created_at, updated_at`

// ProductPostgres is a PostgreSQL implementation of repository.ProductRepository.
// Images and variants are stored as JSONB documents on the product row.
type ProductPostgres struct {
	db *sql.DB
}

// NewProductPostgres creates a new ProductPostgres repository.
func NewProductPostgres(db *sql.DB) *ProductPostgres {
	return &ProductPostgres{db: db}
}

var _ repository.ProductRepository = (*ProductPostgres)(nil)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*model.Product, error) {
	var (
		p        model.Product
		images   []byte
		variants []byte
	)
	if err := s.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Category,
		&p.PriceCents,
		&p.Stock,
		&images,
		&variants,
		&p.Active,
		&p.Featured,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(images, &p.Images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	if err := unmarshalJSONB(variants, &p.Variants); err != nil {
		return nil, fmt.Errorf("decode variants: %w", err)
	}
	if p.Images == nil {
		p.Images = []model.Image{}
	}
	if p.Variants == nil {
		p.Variants = []model.Variant{}
	}
	return &p, nil
}

// Create inserts a new product row and returns the stored record.
func (r *ProductPostgres) Create(ctx context.Context, p *model.Product) (*model.Product, error) {
	images, variants, err := encodeProductJSON(p)
	if err != nil {
		return nil, err
	}
	q := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + productColumns
	row := r.db.QueryRowContext(ctx, q,
		p.ID,
		p.Name,
		p.Slug,
		p.Description,
		p.Category,
		p.PriceCents,
		p.Stock,
		images,
		variants,
		p.Active,
		p.Featured,
		p.CreatedAt,
		p.UpdatedAt,
	)
	out, err := scanProduct(row)
	if err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

// FindByID fetches a single product by its ID.
func (r *ProductPostgres) FindByID(ctx context.Context, id string) (*model.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return scanProduct(r.db.QueryRowContext(ctx, q, id))
}

// FindBySlug fetches a single product by its slug.
func (r *ProductPostgres) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`
	return scanProduct(r.db.QueryRowContext(ctx, q, slug))
}

// List returns products using LIMIT/OFFSET pagination and a total count.
func (r *ProductPostgres) List(ctx context.Context, f model.ProductFilter, pq repository.PageQuery) (*repository.PageResult[model.Product], error) {
	where, args := productWhere(f)

	var total int
	qCount := `SELECT COUNT(*) FROM products` + where
	if err := r.db.QueryRowContext(ctx, qCount, args...).Scan(&total); err != nil {
		return nil, err
	}

	qList := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY featured DESC, created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, qList, append(args, pq.Limit, pq.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Product]{
		Items: items,
		Total: total,
	}, nil
}

func productWhere(f model.ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.ActiveOnly {
		conds = append(conds, "active = true")
	}
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Featured != nil {
		args = append(args, *f.Featured)
		conds = append(conds, fmt.Sprintf("featured = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Update overwrites the descriptive columns of a product. Stock is left
// untouched; it only changes through AdjustStock and order transactions.
func (r *ProductPostgres) Update(ctx context.Context, p *model.Product) (*model.Product, error) {
	images, variants, err := encodeProductJSON(p)
	if err != nil {
		return nil, err
	}
	q := `
		UPDATE products
		SET name = $2, slug = $3, description = $4, category = $5, price_cents = $6,
		    images = $7, variants = $8, active = $9, featured = $10, updated_at = $11
		WHERE id = $1
		RETURNING ` + productColumns
	row := r.db.QueryRowContext(ctx, q,
		p.ID,
		p.Name,
		p.Slug,
		p.Description,
		p.Category,
		p.PriceCents,
		images,
		variants,
		p.Active,
		p.Featured,
		p.UpdatedAt,
	)
	out, err := scanProduct(row)
	if err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

// Delete removes a product by ID. It does not return an error if the row does not exist.
func (r *ProductPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM products WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// AdjustStock changes stock by delta without letting it drop below zero.
func (r *ProductPostgres) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	const q = `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING stock
	`
	var stock int
	err := r.db.QueryRowContext(ctx, q, id, delta).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the product is missing or the stock would go negative.
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return 0, findErr
		}
		return 0, repository.ErrInsufficientStock
	}
	if err != nil {
		return 0, err
	}
	return stock, nil
}

// LowStock lists active products at or below the stock threshold.
func (r *ProductPostgres) LowStock(ctx context.Context, threshold, limit int) ([]model.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE active = true AND stock <= $1 ORDER BY stock ASC, name ASC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

// Count returns the number of products in the catalog.
func (r *ProductPostgres) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

func encodeProductJSON(p *model.Product) (images, variants string, err error) {
	if images, err = marshalJSONB(p.Images, "[]"); err != nil {
		return "", "", fmt.Errorf("encode images: %w", err)
	}
	if variants, err = marshalJSONB(p.Variants, "[]"); err != nil {
		return "", "", fmt.Errorf("encode variants: %w", err)
	}
	return images, variants, nil
}

// marshalJSONB encodes v for a JSONB parameter, using empty when v is a nil slice.
func marshalJSONB[T any](v []T, empty string) (string, error) {
	if v == nil {
		return empty, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalJSONB(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}

// translateError maps driver errors to repository errors.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
