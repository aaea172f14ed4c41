package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var (
	errInvalidLimit  = errors.New("invalid limit")
	errInvalidOffset = errors.New("invalid offset")
)

// page reads limit and offset query parameters. Out-of-range values are
// clamped by the services; only non-numeric input is rejected here.
func page(c *fiber.Ctx) (limit, offset int, err error) {
	limit, err = strconv.Atoi(c.Query("limit", "20"))
	if err != nil {
		return 0, 0, errInvalidLimit
	}
	offset, err = strconv.Atoi(c.Query("offset", "0"))
	if err != nil {
		return 0, 0, errInvalidOffset
	}
	return limit, offset, nil
}

func pageError(c *fiber.Ctx, err error) error {
	if errors.Is(err, errInvalidOffset) {
		return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
	}
	return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
}

// idParam returns the :id route parameter when it is a UUID.
func idParam(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func invalidID(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
}

func invalidBody(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
}
