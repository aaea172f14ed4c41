package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"furnistore/internal/model"
	"furnistore/internal/repository"
	repoMocks "furnistore/internal/repository/mocks"
)

var (
	testPricing = Pricing{ShippingFlatCents: 4999, FreeShippingThresholdCents: 50000, TaxRateBasisPoints: 800}
	fastRetry   = RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
	homeAddress = model.Address{FullName: "Ada Lovelace", Line1: "12 St James's Sq", City: "London", PostalCode: "SW1Y 4JH", Country: "GB"}
)

func TestPricing_Totals(t *testing.T) {
	tests := []struct {
		name                       string
		pricing                    Pricing
		subtotal                   int64
		wantShip, wantTax, wantTot int64
	}{
		{"flat shipping and rounded tax", testPricing, 12345, 4999, 988, 18332},
		{"free shipping at threshold", testPricing, 50000, 0, 4000, 54000},
		{"no threshold means always flat", Pricing{ShippingFlatCents: 500, TaxRateBasisPoints: 0}, 100000, 500, 0, 100500},
		{"empty subtotal", testPricing, 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ship, tax, total := tt.pricing.Totals(tt.subtotal)
			assert.Equal(t, tt.wantShip, ship)
			assert.Equal(t, tt.wantTax, tax)
			assert.Equal(t, tt.wantTot, total)
		})
	}
}

type orderMocks struct {
	orders   *repoMocks.MockOrderRepository
	carts    *repoMocks.MockCartRepository
	products *repoMocks.MockProductRepository
}

func newOrderSvc() (OrderService, orderMocks) {
	m := orderMocks{
		orders:   new(repoMocks.MockOrderRepository),
		carts:    new(repoMocks.MockCartRepository),
		products: new(repoMocks.MockProductRepository),
	}
	return NewOrderService(m.orders, m.carts, m.products, nil, testPricing, fastRetry, nil, time.UTC), m
}

func TestOrderService_Checkout(t *testing.T) {
	ctx := context.Background()
	valid := CheckoutInput{ShippingAddress: homeAddress, PaymentMethod: model.PaymentCard, Notes: " leave at door "}

	tests := []struct {
		name       string
		in         CheckoutInput
		setupMocks func(m orderMocks)
		check      func(t *testing.T, o *model.Order)
		wantErr    error
	}{
		{
			name: "reprices lines and qualifies for free shipping",
			in:   valid,
			setupMocks: func(m orderMocks) {
				m.carts.On("Items", mock.Anything, "u1").Return([]model.CartItem{
					{Key: "p2:walnut", ProductID: "p2", VariantID: "walnut", Name: "Armchair", UnitPriceCents: 30000, Quantity: 1},
					{Key: "p1", ProductID: "p1", Name: "Linen Sofa", UnitPriceCents: 80000, Quantity: 1},
				}, nil)
				m.products.On("FindByID", mock.Anything, "p2").Return(armchair(), nil)
				m.products.On("FindByID", mock.Anything, "p1").Return(sofa(), nil)
				m.orders.On("Create", mock.Anything, mock.AnythingOfType("*model.Order")).
					Return(func(_ context.Context, o *model.Order) *model.Order { return o }, nil)
			},
			check: func(t *testing.T, o *model.Order) {
				require.Len(t, o.Items, 2)
				assert.Equal(t, int64(36000), o.Items[0].UnitPriceCents)
				assert.Equal(t, "Walnut", o.Items[0].VariantName)
				assert.Equal(t, int64(89900), o.Items[1].LineTotalCents)
				assert.Equal(t, int64(125900), o.SubtotalCents)
				assert.Zero(t, o.ShippingCents)
				assert.Equal(t, int64(10072), o.TaxCents)
				assert.Equal(t, int64(135972), o.TotalCents)
				assert.Equal(t, model.OrderPending, o.Status)
				assert.Equal(t, "leave at door", o.Notes)
				require.Len(t, o.StatusHistory, 1)
				assert.Equal(t, model.OrderStatus(""), o.StatusHistory[0].From)
				assert.Equal(t, model.OrderPending, o.StatusHistory[0].To)
				assert.Equal(t, "u1", o.StatusHistory[0].ActorID)
			},
		},
		{
			name: "small order pays shipping",
			in:   valid,
			setupMocks: func(m orderMocks) {
				m.carts.On("Items", mock.Anything, "u1").Return([]model.CartItem{
					{Key: "p2:oak", ProductID: "p2", VariantID: "oak", Quantity: 1},
				}, nil)
				m.products.On("FindByID", mock.Anything, "p2").Return(armchair(), nil)
				m.orders.On("Create", mock.Anything, mock.AnythingOfType("*model.Order")).
					Return(func(_ context.Context, o *model.Order) *model.Order { return o }, nil)
			},
			check: func(t *testing.T, o *model.Order) {
				assert.Equal(t, int64(30000), o.SubtotalCents)
				assert.Equal(t, int64(4999), o.ShippingCents)
				assert.Equal(t, int64(2400), o.TaxCents)
				assert.Equal(t, int64(37399), o.TotalCents)
			},
		},
		{
			name: "empty cart",
			in:   valid,
			setupMocks: func(m orderMocks) {
				m.carts.On("Items", mock.Anything, "u1").Return([]model.CartItem{}, nil)
			},
			wantErr: ErrEmptyCart,
		},
		{
			name:    "missing address fields",
			in:      CheckoutInput{ShippingAddress: model.Address{FullName: "Ada"}, PaymentMethod: model.PaymentCard},
			wantErr: ErrValidation,
		},
		{
			name:    "unknown payment method",
			in:      CheckoutInput{ShippingAddress: homeAddress, PaymentMethod: "barter"},
			wantErr: ErrValidation,
		},
		{
			name: "product withdrawn since it was added",
			in:   valid,
			setupMocks: func(m orderMocks) {
				m.carts.On("Items", mock.Anything, "u1").Return([]model.CartItem{{Key: "p1", ProductID: "p1", Name: "Linen Sofa", Quantity: 1}}, nil)
				m.products.On("FindByID", mock.Anything, "p1").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrUnavailable,
		},
		{
			name: "variant withdrawn since it was added",
			in:   valid,
			setupMocks: func(m orderMocks) {
				m.carts.On("Items", mock.Anything, "u1").Return([]model.CartItem{{Key: "p2:teak", ProductID: "p2", VariantID: "teak", Quantity: 1}}, nil)
				m.products.On("FindByID", mock.Anything, "p2").Return(armchair(), nil)
			},
			wantErr: ErrUnavailable,
		},
		{
			name: "stock ran out",
			in:   valid,
			setupMocks: func(m orderMocks) {
				m.carts.On("Items", mock.Anything, "u1").Return([]model.CartItem{{Key: "p1", ProductID: "p1", Quantity: 3}}, nil)
				m.products.On("FindByID", mock.Anything, "p1").Return(sofa(), nil)
				m.orders.On("Create", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: product p1", repository.ErrInsufficientStock))
			},
			wantErr: ErrInsufficientStock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newOrderSvc()
			if tt.setupMocks != nil {
				tt.setupMocks(m)
			}

			o, err := svc.Checkout(ctx, "u1", tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, o)
			} else {
				require.NoError(t, err)
				tt.check(t, o)
			}
			m.carts.AssertExpectations(t)
			m.products.AssertExpectations(t)
			m.orders.AssertExpectations(t)
		})
	}
}

func TestOrderService_Get(t *testing.T) {
	ctx := context.Background()
	order := &model.Order{ID: "o1", UserID: "u1", Status: model.OrderPending}

	t.Run("retries transient failures", func(t *testing.T) {
		svc, m := newOrderSvc()
		m.orders.On("FindByID", ctx, "o1").Return(nil, errors.New("connection reset")).Twice()
		m.orders.On("FindByID", ctx, "o1").Return(order, nil).Once()

		o, err := svc.Get(ctx, "o1", "u1", false)
		require.NoError(t, err)
		assert.Equal(t, "o1", o.ID)
		m.orders.AssertNumberOfCalls(t, "FindByID", 3)
	})

	t.Run("gives up after max tries", func(t *testing.T) {
		svc, m := newOrderSvc()
		m.orders.On("FindByID", ctx, "o1").Return(nil, errors.New("connection reset"))

		_, err := svc.Get(ctx, "o1", "u1", false)
		assert.ErrorContains(t, err, "connection reset")
		m.orders.AssertNumberOfCalls(t, "FindByID", 3)
	})

	t.Run("not found is not retried", func(t *testing.T) {
		svc, m := newOrderSvc()
		m.orders.On("FindByID", ctx, "o1").Return(nil, sql.ErrNoRows)

		_, err := svc.Get(ctx, "o1", "u1", false)
		assert.ErrorIs(t, err, ErrNotFound)
		m.orders.AssertNumberOfCalls(t, "FindByID", 1)
	})

	t.Run("other users' orders are hidden", func(t *testing.T) {
		svc, m := newOrderSvc()
		m.orders.On("FindByID", ctx, "o1").Return(order, nil)

		_, err := svc.Get(ctx, "o1", "u2", false)
		assert.ErrorIs(t, err, ErrNotFound)

		o, err := svc.Get(ctx, "o1", "a1", true)
		require.NoError(t, err)
		assert.Equal(t, "u1", o.UserID)
	})
}

func TestOrderService_ListMine(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderSvc()
	m.orders.On("List", ctx, model.OrderFilter{UserID: "u1"}, repository.PageQuery{Limit: 20, Offset: 0}).
		Return(&repository.PageResult[model.Order]{Total: 0}, nil)

	res, err := svc.ListMine(ctx, "u1", 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, res.Items)
	assert.Zero(t, res.Total)

	_, err = svc.ListMine(ctx, "", 0, 0)
	assert.ErrorIs(t, err, ErrOwnerRequired)
}

func TestOrderService_Cancel(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		status     model.OrderStatus
		setupMocks func(m orderMocks)
		wantErr    error
	}{
		{
			name:   "pending order",
			status: model.OrderPending,
			setupMocks: func(m orderMocks) {
				m.orders.On("UpdateStatus", mock.Anything, "o1", model.OrderPending, mock.MatchedBy(func(c model.StatusChange) bool {
					return c.From == model.OrderPending && c.To == model.OrderCancelled && c.ActorID == "u1" && c.Note == "changed my mind"
				})).Return(&model.Order{ID: "o1", Status: model.OrderCancelled}, nil)
			},
		},
		{
			name:   "confirmed order",
			status: model.OrderConfirmed,
			setupMocks: func(m orderMocks) {
				m.orders.On("UpdateStatus", mock.Anything, "o1", model.OrderConfirmed, mock.Anything).
					Return(&model.Order{ID: "o1", Status: model.OrderCancelled}, nil)
			},
		},
		{name: "processing order", status: model.OrderProcessing, wantErr: ErrInvalidTransition},
		{name: "shipped order", status: model.OrderShipped, wantErr: ErrInvalidTransition},
		{
			name:   "status changed underneath",
			status: model.OrderPending,
			setupMocks: func(m orderMocks) {
				m.orders.On("UpdateStatus", mock.Anything, "o1", model.OrderPending, mock.Anything).
					Return(nil, fmt.Errorf("%w: expected pending, found confirmed", repository.ErrStatusConflict))
			},
			wantErr: ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newOrderSvc()
			m.orders.On("FindByID", ctx, "o1").Return(&model.Order{ID: "o1", UserID: "u1", Status: tt.status}, nil)
			if tt.setupMocks != nil {
				tt.setupMocks(m)
			}

			o, err := svc.Cancel(ctx, "o1", "u1", " changed my mind ")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.OrderCancelled, o.Status)
			m.orders.AssertExpectations(t)
		})
	}

	t.Run("someone else's order", func(t *testing.T) {
		svc, m := newOrderSvc()
		m.orders.On("FindByID", ctx, "o1").Return(&model.Order{ID: "o1", UserID: "u2", Status: model.OrderPending}, nil)

		_, err := svc.Cancel(ctx, "o1", "u1", "")
		assert.ErrorIs(t, err, ErrNotFound)
		m.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
