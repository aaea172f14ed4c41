package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"furnistore/internal/cache"
	"furnistore/internal/config"
	"furnistore/internal/metrics"
	"furnistore/internal/model"
	repoMocks "furnistore/internal/repository/mocks"
)

func armchair() *model.Product {
	return &model.Product{
		ID:         "p2",
		Name:       "Armchair",
		PriceCents: 30000,
		Stock:      50,
		Active:     true,
		Variants: []model.Variant{
			{ID: "oak", Name: "Oak"},
			{ID: "walnut", Name: "Walnut", PriceCents: 36000},
		},
		Images: []model.Image{{URL: "http://img.test/arm.jpg", Position: 1}},
	}
}

type cartMocks struct {
	users    *repoMocks.MockCartRepository
	guests   *repoMocks.MockCartRepository
	products *repoMocks.MockProductRepository
}

func newCartSvc(maxPerLine int) (CartService, cartMocks) {
	m := cartMocks{
		users:    new(repoMocks.MockCartRepository),
		guests:   new(repoMocks.MockCartRepository),
		products: new(repoMocks.MockProductRepository),
	}
	return NewCartService(m.users, m.guests, m.products, maxPerLine, nil, time.UTC), m
}

func TestCartService_AddItem(t *testing.T) {
	ctx := context.Background()
	user := UserOwner("u1")
	const (
		sofaID     = "5b0c9a8e-3f4d-4c1b-9a57-0d2e6f1a7c31"
		armchairID = "9e4f2b17-6a3c-4d85-b0e2-7c1d5a9f3e64"
		missingID  = "c2a7d9e0-1b46-4f38-8e5a-3d6b0f9c2a18"
	)

	tests := []struct {
		name       string
		owner      CartOwner
		in         AddItemInput
		setupMocks func(m cartMocks)
		wantErr    error
	}{
		{
			name:  "new variant line snapshots price and name",
			owner: user,
			in:    AddItemInput{ProductID: armchairID, VariantID: "walnut", Quantity: 2},
			setupMocks: func(m cartMocks) {
				m.products.On("FindByID", ctx, armchairID).Return(armchair(), nil)
				m.users.On("Items", ctx, "u1").Return([]model.CartItem{}, nil).Once()
				m.users.On("SaveItem", ctx, "u1", mock.MatchedBy(func(it model.CartItem) bool {
					return it.Key == "p2:walnut" && it.Quantity == 2 && it.UnitPriceCents == 36000 &&
						it.VariantName == "Walnut" && it.Name == "Armchair" && it.ImageURL == "http://img.test/arm.jpg" &&
						!it.AddedAt.IsZero()
				})).Return(nil)
				m.users.On("Items", ctx, "u1").Return([]model.CartItem{{Key: "p2:walnut", UnitPriceCents: 36000, Quantity: 2}}, nil).Once()
			},
		},
		{
			name:  "same key accumulates and keeps added time",
			owner: GuestOwner("g1"),
			in:    AddItemInput{ProductID: armchairID, VariantID: "oak", Quantity: 3},
			setupMocks: func(m cartMocks) {
				added := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
				m.products.On("FindByID", ctx, armchairID).Return(armchair(), nil)
				m.guests.On("Items", ctx, "g1").Return([]model.CartItem{{Key: "p2:oak", Quantity: 4, AddedAt: added}}, nil)
				m.guests.On("SaveItem", ctx, "g1", mock.MatchedBy(func(it model.CartItem) bool {
					return it.Key == "p2:oak" && it.Quantity == 7 && it.AddedAt.Equal(added) && it.UnitPriceCents == 30000
				})).Return(nil)
			},
		},
		{
			name:  "over the per line cap",
			owner: user,
			in:    AddItemInput{ProductID: armchairID, VariantID: "oak", Quantity: 2},
			setupMocks: func(m cartMocks) {
				m.products.On("FindByID", ctx, armchairID).Return(armchair(), nil)
				m.users.On("Items", ctx, "u1").Return([]model.CartItem{{Key: "p2:oak", Quantity: 9}}, nil)
			},
			wantErr: ErrQuantityLimit,
		},
		{
			name:  "over stock",
			owner: user,
			in:    AddItemInput{ProductID: sofaID, Quantity: 5},
			setupMocks: func(m cartMocks) {
				m.products.On("FindByID", ctx, sofaID).Return(sofa(), nil)
				m.users.On("Items", ctx, "u1").Return([]model.CartItem{}, nil)
			},
			wantErr: ErrQuantityLimit,
		},
		{
			name:  "variant required",
			owner: user,
			in:    AddItemInput{ProductID: armchairID, Quantity: 1},
			setupMocks: func(m cartMocks) {
				m.products.On("FindByID", ctx, armchairID).Return(armchair(), nil)
			},
			wantErr: ErrValidation,
		},
		{
			name:  "unknown variant",
			owner: user,
			in:    AddItemInput{ProductID: armchairID, VariantID: "teak", Quantity: 1},
			setupMocks: func(m cartMocks) {
				m.products.On("FindByID", ctx, armchairID).Return(armchair(), nil)
			},
			wantErr: ErrValidation,
		},
		{
			name:  "inactive product",
			owner: user,
			in:    AddItemInput{ProductID: sofaID, Quantity: 1},
			setupMocks: func(m cartMocks) {
				p := sofa()
				p.Active = false
				m.products.On("FindByID", ctx, sofaID).Return(p, nil)
			},
			wantErr: ErrUnavailable,
		},
		{
			name:  "missing product",
			owner: user,
			in:    AddItemInput{ProductID: missingID, Quantity: 1},
			setupMocks: func(m cartMocks) {
				m.products.On("FindByID", ctx, missingID).Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{name: "zero quantity", owner: user, in: AddItemInput{ProductID: sofaID}, wantErr: ErrValidation},
		{name: "no product", owner: user, in: AddItemInput{Quantity: 1}, wantErr: ErrValidation},
		// Rejected before the lookup; a non-UUID never reaches the uuid column.
		{name: "malformed product id", owner: user, in: AddItemInput{ProductID: "sofa", Quantity: 1}, wantErr: ErrValidation},
		{name: "no owner", in: AddItemInput{ProductID: sofaID, Quantity: 1}, wantErr: ErrOwnerRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newCartSvc(10)
			if tt.setupMocks != nil {
				tt.setupMocks(m)
			}

			cart, err := svc.AddItem(ctx, tt.owner, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, cart)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.owner.Guest, cart.Guest)
			}
			m.users.AssertExpectations(t)
			m.guests.AssertExpectations(t)
			m.products.AssertExpectations(t)
		})
	}
}

func TestCartService_SetQuantity(t *testing.T) {
	ctx := context.Background()
	owner := UserOwner("u1")
	lines := func() []model.CartItem {
		return []model.CartItem{{Key: "p2:oak", ProductID: "p2", VariantID: "oak", UnitPriceCents: 30000, Quantity: 1}}
	}

	t.Run("updates quantity", func(t *testing.T) {
		svc, m := newCartSvc(10)
		m.users.On("Items", ctx, "u1").Return(lines(), nil)
		m.products.On("FindByID", ctx, "p2").Return(armchair(), nil)
		m.users.On("SaveItem", ctx, "u1", mock.MatchedBy(func(it model.CartItem) bool {
			return it.Key == "p2:oak" && it.Quantity == 4
		})).Return(nil)

		_, err := svc.SetQuantity(ctx, owner, "p2:oak", 4)
		require.NoError(t, err)
		m.users.AssertExpectations(t)
	})

	t.Run("zero removes the line", func(t *testing.T) {
		svc, m := newCartSvc(10)
		m.users.On("RemoveItem", ctx, "u1", "p2:oak").Return(nil)
		m.users.On("Items", ctx, "u1").Return([]model.CartItem{}, nil)

		cart, err := svc.SetQuantity(ctx, owner, "p2:oak", 0)
		require.NoError(t, err)
		assert.Empty(t, cart.Items)
		m.users.AssertExpectations(t)
	})

	t.Run("over the cap", func(t *testing.T) {
		svc, m := newCartSvc(10)
		m.users.On("Items", ctx, "u1").Return(lines(), nil)
		m.products.On("FindByID", ctx, "p2").Return(armchair(), nil)

		_, err := svc.SetQuantity(ctx, owner, "p2:oak", 11)
		assert.ErrorIs(t, err, ErrQuantityLimit)
	})

	t.Run("unknown line", func(t *testing.T) {
		svc, m := newCartSvc(10)
		m.users.On("Items", ctx, "u1").Return(lines(), nil)

		_, err := svc.SetQuantity(ctx, owner, "p2:walnut", 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("product gone", func(t *testing.T) {
		svc, m := newCartSvc(10)
		m.users.On("Items", ctx, "u1").Return(lines(), nil)
		m.products.On("FindByID", ctx, "p2").Return(nil, sql.ErrNoRows)

		_, err := svc.SetQuantity(ctx, owner, "p2:oak", 2)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("malformed key", func(t *testing.T) {
		svc, _ := newCartSvc(10)
		_, err := svc.SetQuantity(ctx, owner, ":oak", 2)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestCartService_RemoveAndClear(t *testing.T) {
	ctx := context.Background()
	svc, m := newCartSvc(10)
	m.guests.On("RemoveItem", ctx, "g1", "p1").Return(nil)
	m.guests.On("Items", ctx, "g1").Return([]model.CartItem{}, nil)
	m.guests.On("Clear", ctx, "g1").Return(nil)

	cart, err := svc.RemoveItem(ctx, GuestOwner("g1"), "p1")
	require.NoError(t, err)
	assert.True(t, cart.Guest)
	require.NoError(t, svc.Clear(ctx, GuestOwner("g1")))
	m.guests.AssertExpectations(t)
	m.users.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)

	_, err = svc.RemoveItem(ctx, GuestOwner("g1"), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCartService_Merge(t *testing.T) {
	ctx := context.Background()
	guestAdded := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("sums, caps and drops", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		sm, err := metrics.NewStoreMetrics(reg)
		require.NoError(t, err)

		m := cartMocks{
			users:    new(repoMocks.MockCartRepository),
			guests:   new(repoMocks.MockCartRepository),
			products: new(repoMocks.MockProductRepository),
		}
		svc := NewCartService(m.users, m.guests, m.products, 10, sm, time.UTC)

		m.guests.On("Items", ctx, "g1").Return([]model.CartItem{
			{Key: "p2:oak", ProductID: "p2", VariantID: "oak", Quantity: 8, AddedAt: guestAdded},
			{Key: "p2:walnut", ProductID: "p2", VariantID: "walnut", Quantity: 1, AddedAt: guestAdded},
			{Key: "p1", ProductID: "p1", Quantity: 2, AddedAt: guestAdded},
			{Key: "gone", ProductID: "gone", Quantity: 1},
			{Key: "p2:teak", ProductID: "p2", VariantID: "teak", Quantity: 1},
		}, nil)
		m.users.On("Items", ctx, "u1").Return([]model.CartItem{
			{Key: "p2:oak", ProductID: "p2", VariantID: "oak", Quantity: 5, UnitPriceCents: 29000},
		}, nil).Once()
		m.products.On("FindByID", ctx, "p2").Return(armchair(), nil).Once()
		m.products.On("FindByID", ctx, "p1").Return(sofa(), nil).Once()
		m.products.On("FindByID", ctx, "gone").Return(nil, sql.ErrNoRows).Once()

		m.users.On("SaveItem", ctx, "u1", mock.MatchedBy(func(it model.CartItem) bool {
			// 5 + 8 capped at 10; the existing price snapshot is kept.
			return it.Key == "p2:oak" && it.Quantity == 10 && it.UnitPriceCents == 29000
		})).Return(nil).Once()
		m.users.On("SaveItem", ctx, "u1", mock.MatchedBy(func(it model.CartItem) bool {
			return it.Key == "p2:walnut" && it.Quantity == 1 && it.UnitPriceCents == 36000 && it.AddedAt.Equal(guestAdded)
		})).Return(nil).Once()
		m.users.On("SaveItem", ctx, "u1", mock.MatchedBy(func(it model.CartItem) bool {
			return it.Key == "p1" && it.Quantity == 2 && it.Name == "Linen Sofa"
		})).Return(nil).Once()
		m.guests.On("Clear", ctx, "g1").Return(nil)
		m.users.On("Items", ctx, "u1").Return([]model.CartItem{
			{Key: "p2:oak", Quantity: 10, UnitPriceCents: 29000},
			{Key: "p2:walnut", Quantity: 1, UnitPriceCents: 36000},
			{Key: "p1", Quantity: 2, UnitPriceCents: 89900},
		}, nil).Once()

		res, err := svc.Merge(ctx, "g1", "u1")
		require.NoError(t, err)
		assert.Equal(t, 3, res.Merged)
		assert.ElementsMatch(t, []string{"gone", "p2:teak"}, res.Dropped)
		assert.Equal(t, 13, res.Cart.ItemCount)
		assert.False(t, res.Cart.Guest)
		assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP cart_merges_total Guest carts merged into signed-in carts.
# TYPE cart_merges_total counter
cart_merges_total 1
`), "cart_merges_total"))

		m.users.AssertExpectations(t)
		m.guests.AssertExpectations(t)
		m.products.AssertExpectations(t)
	})

	t.Run("out of stock line is dropped", func(t *testing.T) {
		svc, m := newCartSvc(10)
		p := sofa()
		p.Stock = 0
		m.guests.On("Items", ctx, "g1").Return([]model.CartItem{{Key: "p1", ProductID: "p1", Quantity: 1}}, nil)
		m.users.On("Items", ctx, "u1").Return([]model.CartItem{}, nil)
		m.products.On("FindByID", ctx, "p1").Return(p, nil)
		m.guests.On("Clear", ctx, "g1").Return(nil)

		res, err := svc.Merge(ctx, "g1", "u1")
		require.NoError(t, err)
		assert.Equal(t, 0, res.Merged)
		assert.Equal(t, []string{"p1"}, res.Dropped)
		m.users.AssertNotCalled(t, "SaveItem", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty guest cart is a no-op", func(t *testing.T) {
		svc, m := newCartSvc(10)
		m.guests.On("Items", ctx, "g1").Return([]model.CartItem{}, nil)
		m.users.On("Items", ctx, "u1").Return([]model.CartItem{{Key: "p1", Quantity: 1, UnitPriceCents: 100}}, nil)

		res, err := svc.Merge(ctx, "g1", "u1")
		require.NoError(t, err)
		assert.Zero(t, res.Merged)
		assert.Equal(t, 1, res.Cart.ItemCount)
		m.guests.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	})

	t.Run("lookup failure aborts before clearing", func(t *testing.T) {
		svc, m := newCartSvc(10)
		m.guests.On("Items", ctx, "g1").Return([]model.CartItem{{Key: "p1", ProductID: "p1", Quantity: 1}}, nil)
		m.users.On("Items", ctx, "u1").Return([]model.CartItem{}, nil)
		m.products.On("FindByID", ctx, "p1").Return(nil, errors.New("db down"))

		_, err := svc.Merge(ctx, "g1", "u1")
		assert.ErrorContains(t, err, "db down")
		m.guests.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	})

	t.Run("owners required", func(t *testing.T) {
		svc, _ := newCartSvc(10)
		_, err := svc.Merge(ctx, "", "u1")
		assert.ErrorIs(t, err, ErrOwnerRequired)
	})
}

func TestCartService_MergeWithRedisGuestCart(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client, err := cache.NewClient(config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()
	guests := cache.NewGuestCartStore(client, time.Hour)

	users := new(repoMocks.MockCartRepository)
	products := new(repoMocks.MockProductRepository)
	svc := NewCartService(users, guests, products, 20, nil, time.UTC)

	p := sofa()
	p.ID = "5b0c9a8e-3f4d-4c1b-9a57-0d2e6f1a7c31"
	products.On("FindByID", ctx, p.ID).Return(p, nil)
	_, err = svc.AddItem(ctx, GuestOwner("g1"), AddItemInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	users.On("Items", ctx, "u1").Return([]model.CartItem{}, nil).Once()
	users.On("SaveItem", ctx, "u1", mock.MatchedBy(func(it model.CartItem) bool {
		return it.Key == p.ID && it.Quantity == 2
	})).Return(nil)
	users.On("Items", ctx, "u1").Return([]model.CartItem{{Key: p.ID, Quantity: 2, UnitPriceCents: 89900}}, nil).Once()

	res, err := svc.Merge(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(179800), res.Cart.SubtotalCents)

	left, err := guests.Items(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, left)

	// Merging again finds nothing to move.
	users.On("Items", ctx, "u1").Return([]model.CartItem{{Key: p.ID, Quantity: 2, UnitPriceCents: 89900}}, nil).Once()
	res, err = svc.Merge(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Zero(t, res.Merged)
	users.AssertNumberOfCalls(t, "SaveItem", 1)
}
