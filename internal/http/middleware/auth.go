package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"furnistore/internal/auth"
)

const (
	// PrincipalLocalKey is the Fiber locals key holding the *auth.Principal.
	PrincipalLocalKey = "principal"
	// GuestIDHeader identifies an anonymous cart owner.
	GuestIDHeader = "X-Guest-ID"
)

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(token string) (*auth.Principal, error)
}

// Authenticate reads an "Authorization: Bearer <token>" header and stores the
// principal in locals. With required=false a missing header lets the request
// through anonymously, but a present and invalid token is still rejected.
func Authenticate(tp TokenParser, required bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			if required {
				return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
			}
			return c.Next()
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "malformed authorization header")
		}

		p, err := tp.Parse(strings.TrimSpace(token))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(PrincipalLocalKey, p)
		return c.Next()
	}
}

// RequireAdmin rejects requests whose principal is not an admin.
// It must run after Authenticate.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := PrincipalFrom(c)
		if p == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		if !p.IsAdmin() {
			return fiber.NewError(fiber.StatusForbidden, "admin access required")
		}
		return c.Next()
	}
}

// PrincipalFrom returns the authenticated caller or nil.
func PrincipalFrom(c *fiber.Ctx) *auth.Principal {
	p, _ := c.Locals(PrincipalLocalKey).(*auth.Principal)
	return p
}

// GuestID returns the canonical X-Guest-ID value when it holds a UUID, otherwise "".
func GuestID(c *fiber.Ctx) string {
	id, err := uuid.Parse(strings.TrimSpace(c.Get(GuestIDHeader)))
	if err != nil {
		return ""
	}
	return id.String()
}
