package repository

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres for durable data, cache for
// Redis-backed guest carts).

import "errors"

var (
	// ErrInsufficientStock is returned when a stock reservation would go negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStatusConflict is returned when an order changed status concurrently.
	ErrStatusConflict = errors.New("order status changed concurrently")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("duplicate record")
)

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
