package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"furnistore/internal/logging"
)

const (
	RequestIDHeader   = "X-Request-ID"
	RequestIDLocalKey = "request_id"

	maxRequestIDLen = 64
)

// RequestID tags every request with an id. A well-formed incoming
// X-Request-ID is kept so ids survive a proxy hop; anything else is replaced
// with a fresh UUID. The id is echoed on the response, stored in locals and
// attached to the user context for service-level logs.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}

		c.Locals(RequestIDLocalKey, id)
		c.SetUserContext(logging.WithRequestID(c.UserContext(), id))
		c.Set(RequestIDHeader, id)

		return c.Next()
	}
}

// RequestIDFrom returns the id set by RequestID, or "" outside it.
func RequestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(RequestIDLocalKey).(string)
	return id
}

// validRequestID accepts short tokens of letters, digits and "-_.:" so a
// client cannot inject arbitrary text into logs.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return false
		}
	}
	return true
}
