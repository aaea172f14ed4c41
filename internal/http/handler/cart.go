package handler

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"furnistore/internal/http/middleware"
	"furnistore/internal/service"
)

// cartOwner prefers the signed-in user and falls back to the X-Guest-ID header.
func cartOwner(c *fiber.Ctx) (service.CartOwner, error) {
	if p := middleware.PrincipalFrom(c); p != nil {
		return service.UserOwner(p.UserID), nil
	}
	if id := middleware.GuestID(c); id != "" {
		return service.GuestOwner(id), nil
	}
	return service.CartOwner{}, service.ErrOwnerRequired
}

func cartKey(c *fiber.Ctx) (string, bool) {
	key, err := url.PathUnescape(c.Params("key"))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

// GetCart returns the caller's cart.
//
// @Summary  Get cart
// @Tags     cart
// @Produce  json
// @Param    X-Guest-ID header string false "guest cart id (UUID) when not signed in"
// @Success  200 {object} model.Cart
// @Failure  400 {object} errorPayload
// @Router   /cart [get]
func GetCart(svc service.CartService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, err := cartOwner(c)
		if err != nil {
			return serviceError(c, err)
		}
		cart, err := svc.Get(c.UserContext(), owner)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(cart)
	}
}

// AddCartItem adds a product (and optional variant) to the cart.
//
// @Summary  Add to cart
// @Tags     cart
// @Accept   json
// @Produce  json
// @Param    X-Guest-ID header string false "guest cart id (UUID) when not signed in"
// @Param    item body service.AddItemInput true "item"
// @Success  200 {object} model.Cart
// @Failure  409 {object} errorPayload
// @Failure  422 {object} errorPayload
// @Router   /cart/items [post]
func AddCartItem(svc service.CartService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, err := cartOwner(c)
		if err != nil {
			return serviceError(c, err)
		}
		var in service.AddItemInput
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
		cart, err := svc.AddItem(c.UserContext(), owner, in)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(cart)
	}
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

// SetCartItemQuantity replaces the quantity of a cart line. Zero removes it.
func SetCartItemQuantity(svc service.CartService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, err := cartOwner(c)
		if err != nil {
			return serviceError(c, err)
		}
		key, ok := cartKey(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KEY", "cart item key is required")
		}
		var req quantityRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		if req.Quantity == nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "quantity is required")
		}
		cart, err := svc.SetQuantity(c.UserContext(), owner, key, *req.Quantity)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(cart)
	}
}

// RemoveCartItem drops a line from the cart.
func RemoveCartItem(svc service.CartService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, err := cartOwner(c)
		if err != nil {
			return serviceError(c, err)
		}
		key, ok := cartKey(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KEY", "cart item key is required")
		}
		cart, err := svc.RemoveItem(c.UserContext(), owner, key)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(cart)
	}
}

// ClearCart empties the cart.
func ClearCart(svc service.CartService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, err := cartOwner(c)
		if err != nil {
			return serviceError(c, err)
		}
		if err := svc.Clear(c.UserContext(), owner); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// MergeCart folds the guest cart named by X-Guest-ID into the signed-in user's cart.
//
// @Summary  Merge guest cart
// @Tags     cart
// @Produce  json
// @Security BearerAuth
// @Param    X-Guest-ID header string true "guest cart id (UUID)"
// @Success  200 {object} service.MergeResult
// @Failure  400 {object} errorPayload
// @Failure  401 {object} errorPayload
// @Router   /cart/merge [post]
func MergeCart(svc service.CartService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := middleware.PrincipalFrom(c)
		if p == nil {
			return fiber.ErrUnauthorized
		}
		guestID := middleware.GuestID(c)
		if guestID == "" {
			return serviceError(c, service.ErrOwnerRequired)
		}
		res, err := svc.Merge(c.UserContext(), guestID, p.UserID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}
