package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"furnistore/internal/model"
	"furnistore/internal/service"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Checkout(ctx context.Context, userID string, in service.CheckoutInput) (*model.Order, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) Get(ctx context.Context, id, requesterID string, asAdmin bool) (*model.Order, error) {
	args := m.Called(ctx, id, requesterID, asAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) ListMine(ctx context.Context, userID string, limit, offset int) (*service.ListResult[model.Order], error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.Order]), args.Error(1)
}

func (m *MockOrderService) Cancel(ctx context.Context, id, userID, note string) (*model.Order, error) {
	args := m.Called(ctx, id, userID, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}
