package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"furnistore/internal/model"
	"furnistore/internal/service"
)

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) Get(ctx context.Context, owner service.CartOwner) (*model.Cart, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, owner service.CartOwner, in service.AddItemInput) (*model.Cart, error) {
	args := m.Called(ctx, owner, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartService) SetQuantity(ctx context.Context, owner service.CartOwner, key string, quantity int) (*model.Cart, error) {
	args := m.Called(ctx, owner, key, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, owner service.CartOwner, key string) (*model.Cart, error) {
	args := m.Called(ctx, owner, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartService) Clear(ctx context.Context, owner service.CartOwner) error {
	args := m.Called(ctx, owner)
	return args.Error(0)
}

func (m *MockCartService) Merge(ctx context.Context, guestID, userID string) (*service.MergeResult, error) {
	args := m.Called(ctx, guestID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MergeResult), args.Error(1)
}
