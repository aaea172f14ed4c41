package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"furnistore/internal/metrics"
	"furnistore/internal/model"
	"furnistore/internal/repository"
)

const (
	dashboardRecentOrders = 5
	dashboardLowStock     = 10
)

// AdminOrder is an order with the statuses an admin may move it to.
type AdminOrder struct {
	*model.Order
	NextStatuses []model.OrderStatus `json:"next_statuses"`
}

func newAdminOrder(o *model.Order) *AdminOrder {
	return &AdminOrder{Order: o, NextStatuses: model.NextStatuses(o.Status)}
}

// AdminService covers the back-office: order fulfilment, dashboard and users.
type AdminService interface {
	ListOrders(ctx context.Context, status model.OrderStatus, limit, offset int) (*ListResult[model.Order], error)
	GetOrder(ctx context.Context, id string) (*AdminOrder, error)
	// UpdateOrderStatus moves an order along the admin state machine.
	UpdateOrderStatus(ctx context.Context, id string, to model.OrderStatus, actorID, note string) (*AdminOrder, error)
	Dashboard(ctx context.Context) (*model.Dashboard, error)
	ListUsers(ctx context.Context, limit, offset int) (*ListResult[model.User], error)
}

type adminService struct {
	orders            repository.OrderRepository
	products          repository.ProductRepository
	users             repository.UserRepository
	cache             ProductCache
	retry             RetryPolicy
	lowStockThreshold int
	metrics           *metrics.StoreMetrics
	loc               *time.Location
	now               func() time.Time
}

// NewAdminService constructs an AdminService.
func NewAdminService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	cache ProductCache,
	retry RetryPolicy,
	lowStockThreshold int,
	m *metrics.StoreMetrics,
	loc *time.Location,
) AdminService {
	return &adminService{
		orders:            orders,
		products:          products,
		users:             users,
		cache:             cache,
		retry:             retry,
		lowStockThreshold: lowStockThreshold,
		metrics:           m,
		loc:               loc,
		now:               time.Now,
	}
}

func (s *adminService) ListOrders(ctx context.Context, status model.OrderStatus, limit, offset int) (*ListResult[model.Order], error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	pq := pageQuery(limit, offset)
	res, err := s.orders.List(ctx, model.OrderFilter{Status: status}, pq)
	if err != nil {
		return nil, err
	}
	return listResult(res, pq), nil
}

func (s *adminService) GetOrder(ctx context.Context, id string) (*AdminOrder, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	o, err := fetchOrder(ctx, s.orders, s.retry, id)
	if err != nil {
		return nil, err
	}
	return newAdminOrder(o), nil
}

func (s *adminService) UpdateOrderStatus(ctx context.Context, id string, to model.OrderStatus, actorID, note string) (*AdminOrder, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}
	o, err := fetchOrder(ctx, s.orders, s.retry, id)
	if err != nil {
		return nil, err
	}
	if !model.CanUpdateOrderStatus(o.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}

	updated, err := applyStatus(ctx, statusDeps{orders: s.orders, cache: s.cache, metrics: s.metrics, loc: s.loc}, o, model.StatusChange{
		From:    o.Status,
		To:      to,
		ActorID: actorID,
		Note:    strings.TrimSpace(note),
		At:      s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return newAdminOrder(updated), nil
}

func (s *adminService) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	counts, err := s.orders.StatusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	revenue, err := s.orders.Revenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("revenue: %w", err)
	}
	productCount, err := s.products.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("product count: %w", err)
	}
	lowStock, err := s.products.LowStock(ctx, s.lowStockThreshold, dashboardLowStock)
	if err != nil {
		return nil, fmt.Errorf("low stock: %w", err)
	}
	recent, err := s.orders.List(ctx, model.OrderFilter{}, repository.PageQuery{Limit: dashboardRecentOrders})
	if err != nil {
		return nil, fmt.Errorf("recent orders: %w", err)
	}

	d := &model.Dashboard{
		OrdersByStatus:    counts,
		RevenueCents:      revenue,
		ProductCount:      productCount,
		LowStockProducts:  lowStock,
		RecentOrders:      recent.Items,
		LowStockThreshold: s.lowStockThreshold,
	}
	for _, n := range counts {
		d.TotalOrders += n
	}
	if d.LowStockProducts == nil {
		d.LowStockProducts = []model.Product{}
	}
	if d.RecentOrders == nil {
		d.RecentOrders = []model.Order{}
	}
	return d, nil
}

func (s *adminService) ListUsers(ctx context.Context, limit, offset int) (*ListResult[model.User], error) {
	pq := pageQuery(limit, offset)
	res, err := s.users.List(ctx, pq)
	if err != nil {
		return nil, err
	}
	return listResult(res, pq), nil
}
