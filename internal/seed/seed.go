// Package seed loads a YAML catalog into the product repository.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"furnistore/internal/logging"
	"furnistore/internal/model"
	"furnistore/internal/repository"
	"furnistore/internal/storage"
)

// Catalog is the seed file layout.
type Catalog struct {
	Products []model.Product `yaml:"products"`
}

// Result counts what Apply did.
type Result struct {
	Created int
	Skipped int
}

// Load parses and validates a catalog. Slugs default to the slugified name
// and image URLs are derived from keys when left blank.
func Load(r io.Reader, imageBaseURL string) ([]model.Product, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]bool, len(c.Products))
	for i := range c.Products {
		p := &c.Products[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("product %d: name is required", i)
		}
		if p.PriceCents <= 0 {
			return nil, fmt.Errorf("product %q: price_cents must be positive", p.Name)
		}
		if p.Stock < 0 {
			return nil, fmt.Errorf("product %q: stock must not be negative", p.Name)
		}
		p.Category = strings.ToLower(strings.TrimSpace(p.Category))
		if p.Slug = model.Slugify(p.Slug); p.Slug == "" {
			p.Slug = model.Slugify(p.Name)
		}
		if seen[p.Slug] {
			return nil, fmt.Errorf("product %q: duplicate slug %q", p.Name, p.Slug)
		}
		seen[p.Slug] = true

		for j := range p.Images {
			img := &p.Images[j]
			if img.URL == "" {
				img.URL = storage.PublicURL(imageBaseURL, img.Key)
			}
		}
		for _, v := range p.Variants {
			if v.ID == "" || strings.Contains(v.ID, ":") {
				return nil, fmt.Errorf("product %q: invalid variant id %q", p.Name, v.ID)
			}
		}
	}
	return c.Products, nil
}

// Apply inserts products whose slug is not in the catalog yet. Existing
// products are left untouched so seeding can be re-run.
func Apply(ctx context.Context, repo repository.ProductRepository, products []model.Product, loc *time.Location) (Result, error) {
	var res Result
	for i := range products {
		p := products[i]

		_, err := repo.FindBySlug(ctx, p.Slug)
		if err == nil {
			res.Skipped++
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return res, fmt.Errorf("lookup %q: %w", p.Slug, err)
		}

		now := time.Now().UTC()
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.CreatedAt, p.UpdatedAt = now, now
		if _, err := repo.Create(ctx, &p); err != nil {
			return res, fmt.Errorf("create %q: %w", p.Slug, err)
		}
		res.Created++
	}

	logging.JSON(loc, map[string]any{
		"component": "seed",
		"event":     "catalog_seeded",
		"created":   res.Created,
		"skipped":   res.Skipped,
	})
	return res, nil
}
