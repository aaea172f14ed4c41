package handler

import (
	"github.com/gofiber/fiber/v2"

	"furnistore/internal/http/middleware"
	"furnistore/internal/service"
)

// Checkout places an order from the signed-in user's cart.
//
// @Summary  Checkout
// @Tags     orders
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    checkout body service.CheckoutInput true "shipping and payment"
// @Success  201 {object} model.Order
// @Failure  400 {object} errorPayload
// @Failure  409 {object} errorPayload
// @Failure  422 {object} errorPayload
// @Router   /checkout [post]
func Checkout(svc service.OrderService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := middleware.PrincipalFrom(c)
		if p == nil {
			return fiber.ErrUnauthorized
		}
		var in service.CheckoutInput
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
		o, err := svc.Checkout(c.UserContext(), p.UserID, in)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(o)
	}
}

// ListMyOrders lists the caller's orders, newest first.
func ListMyOrders(svc service.OrderService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := middleware.PrincipalFrom(c)
		if p == nil {
			return fiber.ErrUnauthorized
		}
		limit, offset, err := page(c)
		if err != nil {
			return pageError(c, err)
		}
		res, err := svc.ListMine(c.UserContext(), p.UserID, limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// GetOrder returns one of the caller's orders. Admins may read any order.
//
// @Summary  Get order
// @Tags     orders
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "order id"
// @Success  200 {object} model.Order
// @Failure  404 {object} errorPayload
// @Router   /orders/{id} [get]
func GetOrder(svc service.OrderService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := middleware.PrincipalFrom(c)
		if p == nil {
			return fiber.ErrUnauthorized
		}
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		o, err := svc.Get(c.UserContext(), id, p.UserID, p.IsAdmin())
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(o)
	}
}

type noteRequest struct {
	Note string `json:"note"`
}

// CancelOrder cancels one of the caller's orders while it is pending or confirmed.
func CancelOrder(svc service.OrderService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := middleware.PrincipalFrom(c)
		if p == nil {
			return fiber.ErrUnauthorized
		}
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		var req noteRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return invalidBody(c)
			}
		}
		o, err := svc.Cancel(c.UserContext(), id, p.UserID, req.Note)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(o)
	}
}
