package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"furnistore/internal/model"
	"furnistore/internal/service"
)

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) ListOrders(ctx context.Context, status model.OrderStatus, limit, offset int) (*service.ListResult[model.Order], error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.Order]), args.Error(1)
}

func (m *MockAdminService) GetOrder(ctx context.Context, id string) (*service.AdminOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AdminOrder), args.Error(1)
}

func (m *MockAdminService) UpdateOrderStatus(ctx context.Context, id string, to model.OrderStatus, actorID, note string) (*service.AdminOrder, error) {
	args := m.Called(ctx, id, to, actorID, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AdminOrder), args.Error(1)
}

func (m *MockAdminService) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dashboard), args.Error(1)
}

func (m *MockAdminService) ListUsers(ctx context.Context, limit, offset int) (*service.ListResult[model.User], error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.User]), args.Error(1)
}
