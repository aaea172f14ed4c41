package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"furnistore/internal/logging"
	"furnistore/internal/model"
	"furnistore/internal/repository"
	"furnistore/internal/storage"
)

// ProductCache is the cache-through store for single products.
// A nil cache disables caching.
type ProductCache interface {
	Get(ctx context.Context, id string) (*model.Product, bool, error)
	Set(ctx context.Context, p *model.Product) error
	Invalidate(ctx context.Context, id string) error
}

// ProductInput is the admin payload for creating or updating a product.
type ProductInput struct {
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	PriceCents  int64           `json:"price_cents"`
	Stock       int             `json:"stock"`
	Variants    []model.Variant `json:"variants"`
	Active      bool            `json:"active"`
	Featured    bool            `json:"featured"`
}

func (in *ProductInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if in.PriceCents <= 0 {
		return fmt.Errorf("%w: price_cents must be positive", ErrValidation)
	}
	if in.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrValidation)
	}

	in.Slug = model.Slugify(in.Slug)
	if in.Slug == "" {
		in.Slug = model.Slugify(in.Name)
	}
	if in.Slug == "" {
		return fmt.Errorf("%w: name must contain letters or digits", ErrValidation)
	}

	seen := make(map[string]bool, len(in.Variants))
	for i, v := range in.Variants {
		v.ID = strings.TrimSpace(v.ID)
		if v.ID == "" || strings.Contains(v.ID, ":") {
			return fmt.Errorf("%w: variant %d has an invalid id", ErrValidation, i)
		}
		if seen[v.ID] {
			return fmt.Errorf("%w: duplicate variant id %q", ErrValidation, v.ID)
		}
		if v.PriceCents < 0 {
			return fmt.Errorf("%w: variant %q price must not be negative", ErrValidation, v.ID)
		}
		seen[v.ID] = true
		in.Variants[i] = v
	}
	return nil
}

// CatalogService covers product browsing and back-office catalog management.
type CatalogService interface {
	// List returns a page of products. Customers pass ActiveOnly in the filter.
	List(ctx context.Context, f model.ProductFilter, limit, offset int) (*ListResult[model.Product], error)
	// Get returns a product by ID. Inactive products are hidden unless includeInactive.
	Get(ctx context.Context, id string, includeInactive bool) (*model.Product, error)
	// GetBySlug returns a product by slug with the same visibility rule as Get.
	GetBySlug(ctx context.Context, slug string, includeInactive bool) (*model.Product, error)

	Create(ctx context.Context, in ProductInput) (*model.Product, error)
	// Update replaces descriptive fields. Stock and images are kept.
	Update(ctx context.Context, id string, in ProductInput) (*model.Product, error)
	// Delete removes the product and its images.
	Delete(ctx context.Context, id string) error
	// AdjustStock adds delta to stock; the result may not go below zero.
	AdjustStock(ctx context.Context, id string, delta int) (*model.Product, error)

	// UploadImage stores an image and appends it to the product gallery.
	UploadImage(ctx context.Context, id string, r io.Reader, filename, contentType string, size int64) (*model.Product, error)
	// RemoveImage deletes an image from the gallery and the object store.
	RemoveImage(ctx context.Context, id, key string) (*model.Product, error)
}

type catalogService struct {
	repo  repository.ProductRepository
	store storage.Storage
	cache ProductCache
	loc   *time.Location
	now   func() time.Time
}

// NewCatalogService constructs a CatalogService. cache may be nil.
func NewCatalogService(repo repository.ProductRepository, store storage.Storage, cache ProductCache, loc *time.Location) CatalogService {
	return &catalogService{repo: repo, store: store, cache: cache, loc: loc, now: time.Now}
}

func (s *catalogService) List(ctx context.Context, f model.ProductFilter, limit, offset int) (*ListResult[model.Product], error) {
	pq := pageQuery(limit, offset)
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	res, err := s.repo.List(ctx, f, pq)
	if err != nil {
		return nil, err
	}
	return listResult(res, pq), nil
}

func (s *catalogService) Get(ctx context.Context, id string, includeInactive bool) (*model.Product, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active && !includeInactive {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *catalogService) GetBySlug(ctx context.Context, slug string, includeInactive bool) (*model.Product, error) {
	if slug == "" {
		return nil, ErrIDRequired
	}
	p, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err)
	}
	if !p.Active && !includeInactive {
		return nil, ErrNotFound
	}
	return p, nil
}

// load reads through the cache. Cache failures are logged and bypassed.
func (s *catalogService) load(ctx context.Context, id string) (*model.Product, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if s.cache != nil {
		p, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			logging.Error(s.loc, "catalog", "cache_get_failed", err, map[string]any{"product_id": id})
		}
		if ok {
			return p, nil
		}
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			logging.Error(s.loc, "catalog", "cache_set_failed", err, map[string]any{"product_id": id})
		}
	}
	return p, nil
}

func (s *catalogService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		logging.Error(s.loc, "catalog", "cache_invalidate_failed", err, map[string]any{"product_id": id})
	}
}

func (s *catalogService) Create(ctx context.Context, in ProductInput) (*model.Product, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p := &model.Product{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		Category:    in.Category,
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
		Images:      []model.Image{},
		Variants:    in.Variants,
		Active:      in.Active,
		Featured:    in.Featured,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	out, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, conflict(err)
	}
	return out, nil
}

func (s *catalogService) Update(ctx context.Context, id string, in ProductInput) (*model.Product, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	p.Name = in.Name
	p.Slug = in.Slug
	p.Description = in.Description
	p.Category = in.Category
	p.PriceCents = in.PriceCents
	p.Variants = in.Variants
	p.Active = in.Active
	p.Featured = in.Featured
	p.UpdatedAt = s.now().UTC()

	out, err := s.repo.Update(ctx, p)
	if err != nil {
		return nil, conflict(notFound(err))
	}
	s.invalidate(ctx, id)
	return out, nil
}

func (s *catalogService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	// Objects go first so a failed delete leaves the row pointing at them.
	for _, img := range p.Images {
		if err := s.store.Delete(ctx, img.Key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			return fmt.Errorf("delete image %s: %w", img.Key, err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *catalogService) AdjustStock(ctx context.Context, id string, delta int) (*model.Product, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if delta == 0 {
		return nil, fmt.Errorf("%w: delta must not be zero", ErrValidation)
	}
	if _, err := s.repo.AdjustStock(ctx, id, delta); err != nil {
		return nil, notFound(err)
	}
	s.invalidate(ctx, id)

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (s *catalogService) UploadImage(ctx context.Context, id string, r io.Reader, filename, contentType string, size int64) (*model.Product, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if r == nil {
		return nil, ErrReaderNil
	}
	key, err := storage.ImageKey(id, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	info, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata:    map[string]string{"original-filename": filename, "product-id": id},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	pos := 1
	for _, img := range p.Images {
		if img.Position >= pos {
			pos = img.Position + 1
		}
	}
	p.Images = append(p.Images, model.Image{Key: info.Key, URL: s.store.URL(info.Key), Position: pos})
	p.UpdatedAt = s.now().UTC()

	out, err := s.repo.Update(ctx, p)
	if err != nil {
		// Rollback: the object is unreachable without the row.
		if delErr := s.store.Delete(ctx, info.Key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	s.invalidate(ctx, id)
	return out, nil
}

func (s *catalogService) RemoveImage(ctx context.Context, id, key string) (*model.Product, error) {
	if id == "" || key == "" {
		return nil, ErrIDRequired
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	kept := make([]model.Image, 0, len(p.Images))
	for _, img := range p.Images {
		if img.Key != key {
			kept = append(kept, img)
		}
	}
	if len(kept) == len(p.Images) {
		return nil, ErrNotFound
	}

	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return nil, fmt.Errorf("delete storage: %w", err)
	}
	p.Images = kept
	p.UpdatedAt = s.now().UTC()
	out, err := s.repo.Update(ctx, p)
	if err != nil {
		return nil, notFound(err)
	}
	s.invalidate(ctx, id)
	return out, nil
}

// notFound maps a missing row to ErrNotFound and passes other errors through.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// conflict maps unique violations to ErrConflict.
func conflict(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
