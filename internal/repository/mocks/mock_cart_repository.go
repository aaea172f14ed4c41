package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"furnistore/internal/model"
)

type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) Items(ctx context.Context, ownerID string) ([]model.CartItem, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartItem), args.Error(1)
}

func (m *MockCartRepository) SaveItem(ctx context.Context, ownerID string, item model.CartItem) error {
	args := m.Called(ctx, ownerID, item)
	return args.Error(0)
}

func (m *MockCartRepository) RemoveItem(ctx context.Context, ownerID, key string) error {
	args := m.Called(ctx, ownerID, key)
	return args.Error(0)
}

func (m *MockCartRepository) Clear(ctx context.Context, ownerID string) error {
	args := m.Called(ctx, ownerID)
	return args.Error(0)
}
