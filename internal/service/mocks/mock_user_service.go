package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"furnistore/internal/auth"
	"furnistore/internal/model"
	"furnistore/internal/service"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Me(ctx context.Context, p *auth.Principal) (*model.User, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) UpdateMe(ctx context.Context, p *auth.Principal, in service.ProfileInput) (*model.User, error) {
	args := m.Called(ctx, p, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
