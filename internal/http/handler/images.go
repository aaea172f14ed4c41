package handler

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"furnistore/internal/storage"
)

// ImageProxy streams product images from the object store. Object keys embed a
// random id, so responses are cacheable for a long time.
//
// @Summary  Product image
// @Tags     catalog
// @Produce  octet-stream
// @Param    key path string true "object key"
// @Success  200 {file} binary
// @Failure  404 {object} errorPayload
// @Router   /images/{key} [get]
func ImageProxy(store storage.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, err := url.PathUnescape(c.Params("*"))
		if err != nil || !storage.IsProductImageKey(key) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "image not found")
		}

		rc, info, err := store.Get(c.UserContext(), key)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "image not found")
			}
			return serviceError(c, err)
		}

		ct := info.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		c.Set(fiber.HeaderContentType, ct)
		c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
		if info.ETag != "" {
			c.Set(fiber.HeaderETag, `"`+info.ETag+`"`)
		}
		// fasthttp closes rc once the body is written.
		return c.SendStream(rc, int(info.Size))
	}
}
