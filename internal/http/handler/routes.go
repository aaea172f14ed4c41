package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"furnistore/internal/http/middleware"
	"furnistore/internal/service"
	"furnistore/internal/storage"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	DB      *sql.DB
	Pingers []Pinger
	Tokens  middleware.TokenParser
	Images  storage.Storage

	Catalog service.CatalogService
	Carts   service.CartService
	Orders  service.OrderService
	Admin   service.AdminService
	Users   service.UserService
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: parse, call a service, map the result.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB, d.Pingers...))
	app.Get("/healthz", LivenessProbe())

	if d.Images != nil {
		app.Get("/images/*", ImageProxy(d.Images))
	}

	app.Get("/products", ListProducts(d.Catalog))
	app.Get("/products/slug/:slug", GetProductBySlug(d.Catalog))
	app.Get("/products/:id", GetProduct(d.Catalog))

	optionalAuth := middleware.Authenticate(d.Tokens, false)
	requireAuth := middleware.Authenticate(d.Tokens, true)

	cart := app.Group("/cart", optionalAuth)
	cart.Get("/", GetCart(d.Carts))
	cart.Delete("/", ClearCart(d.Carts))
	cart.Post("/items", AddCartItem(d.Carts))
	cart.Patch("/items/:key", SetCartItemQuantity(d.Carts))
	cart.Delete("/items/:key", RemoveCartItem(d.Carts))
	cart.Post("/merge", requireAuth, MergeCart(d.Carts))

	app.Post("/checkout", requireAuth, Checkout(d.Orders))

	orders := app.Group("/orders", requireAuth)
	orders.Get("/", ListMyOrders(d.Orders))
	orders.Get("/:id", GetOrder(d.Orders))
	orders.Post("/:id/cancel", CancelOrder(d.Orders))

	// Route-level auth: a "/me" group prefix would also cover "/metrics".
	app.Get("/me", requireAuth, GetMe(d.Users))
	app.Put("/me", requireAuth, UpdateMe(d.Users))

	admin := app.Group("/admin", requireAuth, middleware.RequireAdmin())
	admin.Get("/profile", GetMe(d.Users))
	admin.Get("/dashboard", Dashboard(d.Admin))
	admin.Get("/users", ListUsers(d.Admin))

	admin.Get("/orders", AdminListOrders(d.Admin))
	admin.Get("/orders/:id", AdminGetOrder(d.Admin))
	admin.Patch("/orders/:id/status", UpdateOrderStatus(d.Admin))

	admin.Get("/products", AdminListProducts(d.Catalog))
	admin.Post("/products", CreateProduct(d.Catalog))
	admin.Get("/products/:id", AdminGetProduct(d.Catalog))
	admin.Put("/products/:id", UpdateProduct(d.Catalog))
	admin.Delete("/products/:id", DeleteProduct(d.Catalog))
	admin.Patch("/products/:id/stock", AdjustStock(d.Catalog))
	admin.Post("/products/:id/images", UploadProductImage(d.Catalog))
	admin.Delete("/products/:id/images/*", RemoveProductImage(d.Catalog))
}
