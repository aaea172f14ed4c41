package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"furnistore/internal/model"
	"furnistore/internal/repository"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, o *model.Order) (*model.Order, error) {
	args := m.Called(ctx, o)
	if f, ok := args.Get(0).(func(context.Context, *model.Order) *model.Order); ok {
		return f(ctx, o), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id string) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, f model.OrderFilter, pq repository.PageQuery) (*repository.PageResult[model.Order], error) {
	args := m.Called(ctx, f, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Order]), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id string, from model.OrderStatus, change model.StatusChange) (*model.Order, error) {
	args := m.Called(ctx, id, from, change)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) StatusCounts(ctx context.Context) (map[model.OrderStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[model.OrderStatus]int), args.Error(1)
}

func (m *MockOrderRepository) Revenue(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
