package handler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"furnistore/internal/model"
	"furnistore/internal/service"
)

func productFilter(c *fiber.Ctx, activeOnly bool) (model.ProductFilter, bool) {
	f := model.ProductFilter{
		Category:   strings.ToLower(strings.TrimSpace(c.Query("category"))),
		Search:     strings.TrimSpace(c.Query("q")),
		ActiveOnly: activeOnly,
	}
	if raw := c.Query("featured"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return f, false
		}
		f.Featured = &b
	}
	return f, true
}

// ListProducts lists active products.
//
// @Summary  List products
// @Tags     catalog
// @Produce  json
// @Param    category query string false "category"
// @Param    q        query string false "search in name and description"
// @Param    featured query bool   false "featured only"
// @Param    limit    query int    false "page size" default(20)
// @Param    offset   query int    false "offset"    default(0)
// @Success  200 {object} service.ListResult[model.Product]
// @Failure  400 {object} errorPayload
// @Router   /products [get]
func ListProducts(svc service.CatalogService) fiber.Handler {
	return listProducts(svc, true)
}

// AdminListProducts lists products including inactive ones.
func AdminListProducts(svc service.CatalogService) fiber.Handler {
	return listProducts(svc, false)
}

func listProducts(svc service.CatalogService, activeOnly bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := page(c)
		if err != nil {
			return pageError(c, err)
		}
		f, ok := productFilter(c, activeOnly)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FILTER", "featured must be true or false")
		}
		res, err := svc.List(c.UserContext(), f, limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// GetProduct returns an active product by id.
//
// @Summary  Get product
// @Tags     catalog
// @Produce  json
// @Param    id path string true "product id"
// @Success  200 {object} model.Product
// @Failure  404 {object} errorPayload
// @Router   /products/{id} [get]
func GetProduct(svc service.CatalogService) fiber.Handler {
	return getProduct(svc, false)
}

// AdminGetProduct returns a product by id whether or not it is active.
func AdminGetProduct(svc service.CatalogService) fiber.Handler {
	return getProduct(svc, true)
}

func getProduct(svc service.CatalogService, includeInactive bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		p, err := svc.Get(c.UserContext(), id, includeInactive)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(p)
	}
}

// GetProductBySlug returns an active product by its slug.
func GetProductBySlug(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := svc.GetBySlug(c.UserContext(), c.Params("slug"), false)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(p)
	}
}

// CreateProduct adds a product to the catalog.
//
// @Summary  Create product
// @Tags     admin
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    product body service.ProductInput true "product"
// @Success  201 {object} model.Product
// @Failure  400 {object} errorPayload
// @Failure  409 {object} errorPayload
// @Router   /admin/products [post]
func CreateProduct(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.ProductInput
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
		p, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// UpdateProduct replaces the editable fields of a product. Stock is changed
// through AdjustStock only.
func UpdateProduct(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		var in service.ProductInput
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
		p, err := svc.Update(c.UserContext(), id, in)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(p)
	}
}

// DeleteProduct removes a product and its images.
func DeleteProduct(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

type stockRequest struct {
	Delta int `json:"delta"`
}

// AdjustStock adds delta (possibly negative) to a product's stock.
func AdjustStock(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		var req stockRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		p, err := svc.AdjustStock(c.UserContext(), id, req.Delta)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(p)
	}
}

// UploadProductImage stores a product picture (multipart/form-data, field name: file).
func UploadProductImage(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		p, err := svc.UploadImage(c.UserContext(), id, f, fh.Filename, ct, fh.Size)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// RemoveProductImage deletes the image whose object key follows /images/.
func RemoveProductImage(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return invalidID(c)
		}
		key, err := url.PathUnescape(c.Params("*"))
		if err != nil || key == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KEY", "image key is required")
		}
		p, err := svc.RemoveImage(c.UserContext(), id, key)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(p)
	}
}
