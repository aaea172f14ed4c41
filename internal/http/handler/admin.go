package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"furnistore/internal/http/middleware"
	"furnistore/internal/model"
	"furnistore/internal/service"
)

// GetMe returns the caller's profile.
func GetMe(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := middleware.PrincipalFrom(c)
		if p == nil {
			return fiber.ErrUnauthorized
		}
		u, err := svc.Me(c.UserContext(), p)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(u)
	}
}

// UpdateMe changes the caller's display name and phone.
func UpdateMe(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := middleware.PrincipalFrom(c)
		if p == nil {
			return fiber.ErrUnauthorized
		}
		var in service.ProfileInput
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
		u, err := svc.UpdateMe(c.UserContext(), p, in)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(u)
	}
}

// Dashboard summarizes orders, revenue and stock for the back-office.
//
// @Summary  Admin dashboard
// @Tags     admin
// @Produce  json
// @Security BearerAuth
// @Success  200 {object} model.Dashboard
// @Failure  403 {object} errorPayload
// @Router   /admin/dashboard [get]
func Dashboard(svc service.AdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := svc.Dashboard(c.UserContext())
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(d)
	}
}

// AdminListOrders lists all orders, optionally filtered by ?status=.
func AdminListOrders(svc service.AdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := page(c)
		if err != nil {
			return pageError(c, err)
		}
		status := model.OrderStatus(strings.ToLower(strings.TrimSpace(c.Query("status"))))
		res, err := svc.ListOrders(c.UserContext(), status, limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// AdminGetOrder returns any order with its allowed next statuses.
func AdminGetOrder(svc service.AdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		o, err := svc.GetOrder(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(o)
	}
}

type statusRequest struct {
	Status model.OrderStatus `json:"status"`
	Note   string            `json:"note"`
}

// UpdateOrderStatus moves an order to a new status.
//
// @Summary  Update order status
// @Tags     admin
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    id     path string        true "order id"
// @Param    status body statusRequest true "target status"
// @Success  200 {object} service.AdminOrder
// @Failure  409 {object} errorPayload
// @Failure  422 {object} errorPayload
// @Router   /admin/orders/{id}/status [patch]
func UpdateOrderStatus(svc service.AdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		var req statusRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		var actorID string
		if p := middleware.PrincipalFrom(c); p != nil {
			actorID = p.UserID
		}
		o, err := svc.UpdateOrderStatus(c.UserContext(), id, req.Status, actorID, req.Note)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(o)
	}
}

// ListUsers lists customer and admin profiles.
func ListUsers(svc service.AdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := page(c)
		if err != nil {
			return pageError(c, err)
		}
		res, err := svc.ListUsers(c.UserContext(), limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}
