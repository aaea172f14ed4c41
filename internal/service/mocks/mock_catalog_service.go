package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"furnistore/internal/model"
	"furnistore/internal/service"
)

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) List(ctx context.Context, f model.ProductFilter, limit, offset int) (*service.ListResult[model.Product], error) {
	args := m.Called(ctx, f, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.Product]), args.Error(1)
}

func (m *MockCatalogService) Get(ctx context.Context, id string, includeInactive bool) (*model.Product, error) {
	args := m.Called(ctx, id, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalogService) GetBySlug(ctx context.Context, slug string, includeInactive bool) (*model.Product, error) {
	args := m.Called(ctx, slug, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalogService) Create(ctx context.Context, in service.ProductInput) (*model.Product, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalogService) Update(ctx context.Context, id string, in service.ProductInput) (*model.Product, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalogService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCatalogService) AdjustStock(ctx context.Context, id string, delta int) (*model.Product, error) {
	args := m.Called(ctx, id, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalogService) UploadImage(ctx context.Context, id string, r io.Reader, filename, contentType string, size int64) (*model.Product, error) {
	args := m.Called(ctx, id, r, filename, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalogService) RemoveImage(ctx context.Context, id, key string) (*model.Product, error) {
	args := m.Called(ctx, id, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}
