package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"furnistore/internal/http/middleware"
	"furnistore/internal/logging"
	"furnistore/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: middleware.RequestIDFrom(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", "authentication required")
		case fiber.StatusForbidden:
			return writeError(c, status, "FORBIDDEN", "admin access required")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}

// serviceError translates a service error into an error response.
// Validation messages are safe to return; anything unrecognized becomes a 500.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, service.ErrIDRequired), errors.Is(err, service.ErrReaderNil):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, service.ErrValidation):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", validationMessage(err))
	case errors.Is(err, service.ErrOwnerRequired):
		return writeError(c, fiber.StatusBadRequest, "GUEST_ID_REQUIRED", "sign in or send a valid "+middleware.GuestIDHeader+" header")
	case errors.Is(err, service.ErrEmptyCart):
		return writeError(c, fiber.StatusUnprocessableEntity, "EMPTY_CART", "cart is empty")
	case errors.Is(err, service.ErrInsufficientStock):
		return writeError(c, fiber.StatusConflict, "INSUFFICIENT_STOCK", "not enough stock for one or more items")
	case errors.Is(err, service.ErrQuantityLimit):
		return writeError(c, fiber.StatusUnprocessableEntity, "QUANTITY_LIMIT", err.Error())
	case errors.Is(err, service.ErrUnavailable):
		return writeError(c, fiber.StatusUnprocessableEntity, "PRODUCT_UNAVAILABLE", "one or more products are no longer available")
	case errors.Is(err, service.ErrInvalidTransition):
		return writeError(c, fiber.StatusUnprocessableEntity, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, service.ErrConflict):
		return writeError(c, fiber.StatusConflict, "CONFLICT", "resource was modified concurrently, retry")
	default:
		logging.Error(nil, "http", "request_failed", err, map[string]any{
			"request_id": middleware.RequestIDFrom(c),
			"method":     c.Method(),
			"path":       c.Path(),
		})
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// validationMessage drops the sentinel prefix from wrapped validation errors.
func validationMessage(err error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, service.ErrValidation.Error()+": "); ok {
		return rest
	}
	return msg
}
