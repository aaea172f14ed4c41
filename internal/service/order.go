package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"furnistore/internal/logging"
	"furnistore/internal/metrics"
	"furnistore/internal/model"
	"furnistore/internal/repository"
)

const maxNotesLength = 500

// Pricing holds checkout pricing rules. Amounts are in cents.
type Pricing struct {
	ShippingFlatCents          int64
	FreeShippingThresholdCents int64
	TaxRateBasisPoints         int64
}

// Totals computes shipping, tax and grand total for a subtotal.
// Tax is rounded half up to the nearest cent.
func (p Pricing) Totals(subtotal int64) (shipping, tax, total int64) {
	if subtotal > 0 && (p.FreeShippingThresholdCents <= 0 || subtotal < p.FreeShippingThresholdCents) {
		shipping = p.ShippingFlatCents
	}
	tax = (subtotal*p.TaxRateBasisPoints + 5000) / 10000
	return shipping, tax, subtotal + shipping + tax
}

// RetryPolicy bounds the backoff used when reading orders.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy retries three times starting at 100ms.
var DefaultRetryPolicy = RetryPolicy{MaxTries: 3, InitialInterval: 100 * time.Millisecond, MaxInterval: time.Second}

// CheckoutInput is the customer's checkout form.
type CheckoutInput struct {
	ShippingAddress model.Address       `json:"shipping_address"`
	PaymentMethod   model.PaymentMethod `json:"payment_method"`
	Notes           string              `json:"notes"`
}

// OrderService covers checkout and the customer's own orders.
type OrderService interface {
	// Checkout turns the user's cart into a pending order, reserving stock.
	Checkout(ctx context.Context, userID string, in CheckoutInput) (*model.Order, error)
	// Get returns an order visible to the requester. Orders of other users
	// are reported as ErrNotFound unless asAdmin.
	Get(ctx context.Context, id, requesterID string, asAdmin bool) (*model.Order, error)
	ListMine(ctx context.Context, userID string, limit, offset int) (*ListResult[model.Order], error)
	// Cancel cancels the user's own order while it is still pending or confirmed.
	Cancel(ctx context.Context, id, userID, note string) (*model.Order, error)
}

type orderService struct {
	orders   repository.OrderRepository
	carts    repository.CartRepository
	products repository.ProductRepository
	cache    ProductCache
	pricing  Pricing
	retry    RetryPolicy
	metrics  *metrics.StoreMetrics
	loc      *time.Location
	now      func() time.Time
}

// NewOrderService constructs an OrderService. carts is the signed-in cart store.
func NewOrderService(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	products repository.ProductRepository,
	cache ProductCache,
	pricing Pricing,
	retry RetryPolicy,
	m *metrics.StoreMetrics,
	loc *time.Location,
) OrderService {
	return &orderService{
		orders:   orders,
		carts:    carts,
		products: products,
		cache:    cache,
		pricing:  pricing,
		retry:    retry,
		metrics:  m,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *orderService) Checkout(ctx context.Context, userID string, in CheckoutInput) (_ *model.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.Checkout", trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if userID == "" {
		return nil, ErrOwnerRequired
	}
	if missing := in.ShippingAddress.MissingFields(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing address fields: %s", ErrValidation, strings.Join(missing, ", "))
	}
	if !in.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unsupported payment method %q", ErrValidation, in.PaymentMethod)
	}
	if len(in.Notes) > maxNotesLength {
		return nil, fmt.Errorf("%w: notes exceed %d characters", ErrValidation, maxNotesLength)
	}

	lines, err := s.carts.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	items, subtotal, err := s.priceLines(ctx, lines)
	if err != nil {
		return nil, err
	}
	shipping, tax, total := s.pricing.Totals(subtotal)

	now := s.now().UTC()
	o := &model.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Status:          model.OrderPending,
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		Notes:           strings.TrimSpace(in.Notes),
		SubtotalCents:   subtotal,
		ShippingCents:   shipping,
		TaxCents:        tax,
		TotalCents:      total,
		StatusHistory:   []model.StatusChange{{From: "", To: model.OrderPending, ActorID: userID, At: now}},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	stored, err := s.orders.Create(ctx, o)
	if err != nil {
		return nil, err
	}
	s.invalidateItems(ctx, stored.Items)

	span.SetAttributes(attribute.String("order.id", stored.ID), attribute.Int64("order.total_cents", stored.TotalCents))
	s.metrics.OrderPlaced(stored.TotalCents)
	logging.JSON(s.loc, map[string]any{
		"component":   "orders",
		"event":       "order_placed",
		"request_id":  logging.RequestID(ctx),
		"order_id":    stored.ID,
		"user_id":     userID,
		"items":       len(stored.Items),
		"total_cents": stored.TotalCents,
	})
	return stored, nil
}

// priceLines reprices cart lines from the current catalog. A line whose
// product or variant is gone, or whose product is inactive, fails checkout.
func (s *orderService) priceLines(ctx context.Context, lines []model.CartItem) ([]model.OrderItem, int64, error) {
	items := make([]model.OrderItem, 0, len(lines))
	var subtotal int64
	for _, line := range lines {
		p, err := s.products.FindByID(ctx, line.ProductID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, fmt.Errorf("%w: %s is no longer available", ErrUnavailable, line.Name)
		}
		if err != nil {
			return nil, 0, err
		}
		if !p.Active {
			return nil, 0, fmt.Errorf("%w: %s is no longer available", ErrUnavailable, p.Name)
		}
		v, err := resolveVariant(p, line.VariantID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %s option is no longer available", ErrUnavailable, p.Name)
		}

		unit := p.UnitPrice(v.ID)
		lineTotal := unit * int64(line.Quantity)
		items = append(items, model.OrderItem{
			ProductID:      p.ID,
			VariantID:      v.ID,
			Name:           p.Name,
			VariantName:    v.Name,
			ImageURL:       p.PrimaryImageURL(),
			UnitPriceCents: unit,
			Quantity:       line.Quantity,
			LineTotalCents: lineTotal,
		})
		subtotal += lineTotal
	}
	return items, subtotal, nil
}

func (s *orderService) Get(ctx context.Context, id, requesterID string, asAdmin bool) (*model.Order, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	o, err := fetchOrder(ctx, s.orders, s.retry, id)
	if err != nil {
		return nil, err
	}
	if !asAdmin && o.UserID != requesterID {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *orderService) ListMine(ctx context.Context, userID string, limit, offset int) (*ListResult[model.Order], error) {
	if userID == "" {
		return nil, ErrOwnerRequired
	}
	pq := pageQuery(limit, offset)
	res, err := s.orders.List(ctx, model.OrderFilter{UserID: userID}, pq)
	if err != nil {
		return nil, err
	}
	return listResult(res, pq), nil
}

func (s *orderService) Cancel(ctx context.Context, id, userID, note string) (*model.Order, error) {
	o, err := s.Get(ctx, id, userID, false)
	if err != nil {
		return nil, err
	}
	if !model.CustomerCanCancel(o.Status) {
		return nil, fmt.Errorf("%w: an order that is %s can no longer be cancelled", ErrInvalidTransition, o.Status)
	}
	return applyStatus(ctx, statusDeps{orders: s.orders, cache: s.cache, metrics: s.metrics, loc: s.loc}, o, model.StatusChange{
		From:    o.Status,
		To:      model.OrderCancelled,
		ActorID: userID,
		Note:    strings.TrimSpace(note),
		At:      s.now().UTC(),
	})
}

func (s *orderService) invalidateItems(ctx context.Context, items []model.OrderItem) {
	invalidateItems(ctx, s.cache, s.loc, items)
}

// fetchOrder reads an order, retrying transient failures with exponential
// backoff. A missing order is not retried.
func fetchOrder(ctx context.Context, orders repository.OrderRepository, policy RetryPolicy, id string) (*model.Order, error) {
	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		b.MaxInterval = policy.MaxInterval
	}
	tries := policy.MaxTries
	if tries == 0 {
		tries = 1
	}

	o, err := backoff.Retry(ctx, func() (*model.Order, error) {
		o, err := orders.FindByID(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, backoff.Permanent(ErrNotFound)
		}
		return o, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	return o, nil
}

type statusDeps struct {
	orders  repository.OrderRepository
	cache   ProductCache
	metrics *metrics.StoreMetrics
	loc     *time.Location
}

// applyStatus persists a status change guarded by the order's current status.
func applyStatus(ctx context.Context, d statusDeps, o *model.Order, change model.StatusChange) (_ *model.Order, err error) {
	ctx, span := tracer.Start(ctx, "orders.UpdateStatus", trace.WithAttributes(
		attribute.String("order.id", o.ID),
		attribute.String("order.status.from", string(change.From)),
		attribute.String("order.status.to", string(change.To)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	updated, err := d.orders.UpdateStatus(ctx, o.ID, change.From, change)
	switch {
	case errors.Is(err, repository.ErrStatusConflict):
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}

	if change.To.ReleasesStock() {
		invalidateItems(ctx, d.cache, d.loc, updated.Items)
	}
	d.metrics.StatusChanged(change.From, change.To)
	logging.JSON(d.loc, map[string]any{
		"component": "orders",
		"event":     "order_status_changed",
		"order_id":  o.ID,
		"from":      change.From,
		"to":        change.To,
		"actor_id":  change.ActorID,
	})
	return updated, nil
}

func invalidateItems(ctx context.Context, cache ProductCache, loc *time.Location, items []model.OrderItem) {
	if cache == nil {
		return
	}
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it.ProductID] {
			continue
		}
		seen[it.ProductID] = true
		if err := cache.Invalidate(ctx, it.ProductID); err != nil {
			logging.Error(loc, "orders", "cache_invalidate_failed", err, map[string]any{"product_id": it.ProductID})
		}
	}
}
