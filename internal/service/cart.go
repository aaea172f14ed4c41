package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"furnistore/internal/logging"
	"furnistore/internal/metrics"
	"furnistore/internal/model"
	"furnistore/internal/repository"
)

// CartOwner identifies whose cart an operation targets.
type CartOwner struct {
	ID    string
	Guest bool
}

// UserOwner is the cart of a signed-in user.
func UserOwner(id string) CartOwner { return CartOwner{ID: id} }

// GuestOwner is the cart of an anonymous visitor.
func GuestOwner(id string) CartOwner { return CartOwner{ID: id, Guest: true} }

// AddItemInput adds quantity units of a product (and optional variant) to a cart.
type AddItemInput struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// MergeResult reports what happened to a guest cart on sign-in.
type MergeResult struct {
	Cart    *model.Cart `json:"cart"`
	Merged  int         `json:"merged"`
	Dropped []string    `json:"dropped"`
}

// CartService manages guest and signed-in carts.
type CartService interface {
	Get(ctx context.Context, owner CartOwner) (*model.Cart, error)
	// AddItem adds to the line for the product/variant pair, creating it if needed.
	AddItem(ctx context.Context, owner CartOwner, in AddItemInput) (*model.Cart, error)
	// SetQuantity replaces a line quantity. Zero or less removes the line.
	SetQuantity(ctx context.Context, owner CartOwner, key string, quantity int) (*model.Cart, error)
	RemoveItem(ctx context.Context, owner CartOwner, key string) (*model.Cart, error)
	Clear(ctx context.Context, owner CartOwner) error
	// Merge folds a guest cart into a user cart and empties the guest cart.
	Merge(ctx context.Context, guestID, userID string) (*MergeResult, error)
}

type cartService struct {
	users      repository.CartRepository
	guests     repository.CartRepository
	products   repository.ProductRepository
	maxPerLine int
	metrics    *metrics.StoreMetrics
	loc        *time.Location
	now        func() time.Time
}

// NewCartService constructs a CartService. maxPerLine <= 0 disables the per-line cap.
func NewCartService(users, guests repository.CartRepository, products repository.ProductRepository, maxPerLine int, m *metrics.StoreMetrics, loc *time.Location) CartService {
	return &cartService{
		users:      users,
		guests:     guests,
		products:   products,
		maxPerLine: maxPerLine,
		metrics:    m,
		loc:        loc,
		now:        time.Now,
	}
}

func (s *cartService) store(owner CartOwner) (repository.CartRepository, error) {
	if owner.ID == "" {
		return nil, ErrOwnerRequired
	}
	if owner.Guest {
		return s.guests, nil
	}
	return s.users, nil
}

// lineLimit is the largest quantity a single line for p may hold.
func (s *cartService) lineLimit(p *model.Product) int {
	limit := p.Stock
	if s.maxPerLine > 0 && s.maxPerLine < limit {
		limit = s.maxPerLine
	}
	if limit < 0 {
		return 0
	}
	return limit
}

func (s *cartService) Get(ctx context.Context, owner CartOwner) (*model.Cart, error) {
	repo, err := s.store(owner)
	if err != nil {
		return nil, err
	}
	items, err := repo.Items(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	return model.NewCart(owner.ID, owner.Guest, items), nil
}

func (s *cartService) AddItem(ctx context.Context, owner CartOwner, in AddItemInput) (*model.Cart, error) {
	repo, err := s.store(owner)
	if err != nil {
		return nil, err
	}
	if in.ProductID == "" {
		return nil, fmt.Errorf("%w: product_id is required", ErrValidation)
	}
	if _, err := uuid.Parse(in.ProductID); err != nil {
		return nil, fmt.Errorf("%w: product_id must be a UUID", ErrValidation)
	}
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	p, err := s.products.FindByID(ctx, in.ProductID)
	if err != nil {
		return nil, notFound(err)
	}
	if !p.Active {
		return nil, ErrUnavailable
	}
	variant, err := resolveVariant(p, in.VariantID)
	if err != nil {
		return nil, err
	}

	key := model.CartKey(p.ID, in.VariantID)
	items, err := repo.Items(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	line := newLine(p, variant, key, 0, s.now().UTC())
	for _, it := range items {
		if it.Key == key {
			line.Quantity = it.Quantity
			line.AddedAt = it.AddedAt
			break
		}
	}

	line.Quantity += in.Quantity
	if limit := s.lineLimit(p); line.Quantity > limit {
		return nil, fmt.Errorf("%w: at most %d of %s per order", ErrQuantityLimit, limit, p.Name)
	}
	if err := repo.SaveItem(ctx, owner.ID, line); err != nil {
		return nil, err
	}
	return s.Get(ctx, owner)
}

func (s *cartService) SetQuantity(ctx context.Context, owner CartOwner, key string, quantity int) (*model.Cart, error) {
	repo, err := s.store(owner)
	if err != nil {
		return nil, err
	}
	productID, _, err := model.ParseCartKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if quantity <= 0 {
		return s.RemoveItem(ctx, owner, key)
	}

	items, err := repo.Items(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	var line *model.CartItem
	for i := range items {
		if items[i].Key == key {
			line = &items[i]
			break
		}
	}
	if line == nil {
		return nil, ErrNotFound
	}

	p, err := s.products.FindByID(ctx, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnavailable
	}
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, ErrUnavailable
	}
	if limit := s.lineLimit(p); quantity > limit {
		return nil, fmt.Errorf("%w: at most %d of %s per order", ErrQuantityLimit, limit, p.Name)
	}

	line.Quantity = quantity
	if err := repo.SaveItem(ctx, owner.ID, *line); err != nil {
		return nil, err
	}
	return s.Get(ctx, owner)
}

func (s *cartService) RemoveItem(ctx context.Context, owner CartOwner, key string) (*model.Cart, error) {
	repo, err := s.store(owner)
	if err != nil {
		return nil, err
	}
	if _, _, err := model.ParseCartKey(key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := repo.RemoveItem(ctx, owner.ID, key); err != nil {
		return nil, err
	}
	return s.Get(ctx, owner)
}

func (s *cartService) Clear(ctx context.Context, owner CartOwner) error {
	repo, err := s.store(owner)
	if err != nil {
		return err
	}
	return repo.Clear(ctx, owner.ID)
}

func (s *cartService) Merge(ctx context.Context, guestID, userID string) (*MergeResult, error) {
	if guestID == "" || userID == "" {
		return nil, ErrOwnerRequired
	}
	guestLines, err := s.guests.Items(ctx, guestID)
	if err != nil {
		return nil, err
	}
	res := &MergeResult{Dropped: []string{}}
	if len(guestLines) == 0 {
		res.Cart, err = s.Get(ctx, UserOwner(userID))
		return res, err
	}

	userLines, err := s.users.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]model.CartItem, len(userLines))
	for _, it := range userLines {
		existing[it.Key] = it
	}

	products := make(map[string]*model.Product)
	for _, g := range guestLines {
		p, ok := products[g.ProductID]
		if !ok {
			p, err = s.products.FindByID(ctx, g.ProductID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, err
			}
			products[g.ProductID] = p
		}
		if p == nil || !p.Active {
			res.Dropped = append(res.Dropped, g.Key)
			continue
		}
		variant, err := resolveVariant(p, g.VariantID)
		if err != nil {
			res.Dropped = append(res.Dropped, g.Key)
			continue
		}

		line, ok := existing[g.Key]
		if !ok {
			line = newLine(p, variant, g.Key, 0, g.AddedAt)
		}
		line.Quantity += g.Quantity
		if limit := s.lineLimit(p); line.Quantity > limit {
			line.Quantity = limit
		}
		if line.Quantity <= 0 {
			res.Dropped = append(res.Dropped, g.Key)
			continue
		}

		if err := s.users.SaveItem(ctx, userID, line); err != nil {
			return nil, err
		}
		existing[g.Key] = line
		res.Merged++
	}

	if err := s.guests.Clear(ctx, guestID); err != nil {
		return nil, err
	}

	s.metrics.CartMerged()
	logging.JSON(s.loc, map[string]any{
		"component":  "cart",
		"event":      "cart_merged",
		"request_id": logging.RequestID(ctx),
		"user_id":    userID,
		"merged":     res.Merged,
		"dropped":    len(res.Dropped),
	})

	res.Cart, err = s.Get(ctx, UserOwner(userID))
	if err != nil {
		return nil, err
	}
	return res, nil
}

// resolveVariant checks variantID against the product. Products with
// variants require one to be chosen.
func resolveVariant(p *model.Product, variantID string) (model.Variant, error) {
	if variantID == "" {
		if len(p.Variants) > 0 {
			return model.Variant{}, fmt.Errorf("%w: variant_id is required for %s", ErrValidation, p.Name)
		}
		return model.Variant{}, nil
	}
	v, ok := p.Variant(variantID)
	if !ok {
		return model.Variant{}, fmt.Errorf("%w: unknown variant %q", ErrValidation, variantID)
	}
	return v, nil
}

// newLine snapshots catalog data into a cart line.
func newLine(p *model.Product, v model.Variant, key string, quantity int, addedAt time.Time) model.CartItem {
	return model.CartItem{
		Key:            key,
		ProductID:      p.ID,
		VariantID:      v.ID,
		VariantName:    v.Name,
		Name:           p.Name,
		ImageURL:       p.PrimaryImageURL(),
		UnitPriceCents: p.UnitPrice(v.ID),
		Quantity:       quantity,
		AddedAt:        addedAt,
	}
}
