// Package service holds the storefront use cases. Handlers depend on the
// interfaces declared here; implementations depend on repository interfaces.
package service

import (
	"errors"

	"go.opentelemetry.io/otel"

	"furnistore/internal/repository"
)

var (
	ErrIDRequired        = errors.New("id is required")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrOwnerRequired     = errors.New("cart owner is required")
	ErrUnavailable       = errors.New("product is unavailable")
	ErrQuantityLimit     = errors.New("requested quantity exceeds the allowed limit")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrReaderNil         = errors.New("reader is nil")
	// ErrInsufficientStock is the repository error, re-exported for handlers.
	ErrInsufficientStock = repository.ErrInsufficientStock
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

var tracer = otel.Tracer("furnistore/internal/service")

// ListResult is a page of items with the total number of matches.
type ListResult[T any] struct {
	Items  []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func pageQuery(limit, offset int) repository.PageQuery {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.PageQuery{Limit: limit, Offset: offset}
}

func listResult[T any](res *repository.PageResult[T], pq repository.PageQuery) *ListResult[T] {
	items := res.Items
	if items == nil {
		items = []T{}
	}
	return &ListResult[T]{Items: items, Total: res.Total, Limit: pq.Limit, Offset: pq.Offset}
}
