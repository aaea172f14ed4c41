package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"furnistore/docs"
	"furnistore/internal/auth"
	"furnistore/internal/cache"
	"furnistore/internal/config"
	"furnistore/internal/database"
	"furnistore/internal/database/migration"
	handlers "furnistore/internal/http/handler"
	"furnistore/internal/http/middleware"
	"furnistore/internal/logging"
	"furnistore/internal/metrics"
	"furnistore/internal/otel"
	"furnistore/internal/repository/postgres"
	"furnistore/internal/service"
	"furnistore/internal/storage"
)

// Product images are uploaded through the API.
const bodyLimit = 10 << 20

// @title Furnistore API
// @version 1.0
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}

	db, err := database.NewPostgres(ctx, cfg.Database, loc)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := cache.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	objStore, err := storage.NewMinIO(ctx, cfg.MinIO, loc)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	tokens, err := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		log.Fatalf("failed to initialize auth: %v", err)
	}

	storeMetrics, err := metrics.NewStoreMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to register store metrics: %v", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to register http metrics: %v", err)
	}

	// Initialize repositories and services
	productRepo := postgres.NewProductPostgres(db)
	cartRepo := postgres.NewCartPostgres(db)
	orderRepo := postgres.NewOrderPostgres(db)
	userRepo := postgres.NewUserPostgres(db)
	guestCarts := cache.NewGuestCartStore(redisClient, cfg.Redis.GuestCartTTL)
	productCache := cache.NewProductCache(redisClient, cfg.Redis.ProductCacheTTL)

	pricing := service.Pricing{
		ShippingFlatCents:          cfg.Pricing.ShippingFlatCents,
		FreeShippingThresholdCents: cfg.Pricing.FreeShippingThresholdCents,
		TaxRateBasisPoints:         cfg.Pricing.TaxRateBasisPoints,
	}

	deps := handlers.Deps{
		DB:      db,
		Pingers: []handlers.Pinger{redisClient},
		Tokens:  tokens,
		Catalog: service.NewCatalogService(productRepo, objStore, productCache, loc),
		Carts:   service.NewCartService(cartRepo, guestCarts, productRepo, cfg.Cart.MaxQuantityPerLine, storeMetrics, loc),
		Orders:  service.NewOrderService(orderRepo, cartRepo, productRepo, productCache, pricing, service.DefaultRetryPolicy, storeMetrics, loc),
		Admin:   service.NewAdminService(orderRepo, productRepo, userRepo, productCache, service.DefaultRetryPolicy, cfg.Cart.LowStockThreshold, storeMetrics, loc),
		Users:   service.NewUserService(userRepo),
	}
	// Without a public base URL image links point back at this API.
	if cfg.MinIO.PublicBaseURL == "" {
		deps.Images = objStore
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    bodyLimit,
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(loc))
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, deps)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port

	go func() {
		<-ctx.Done()
		logging.JSON(loc, map[string]any{"component": "server", "event": "shutdown", "status": "starting"})
		if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
			logging.Error(loc, "server", "shutdown_failed", err, nil)
		}
	}()

	logging.JSON(loc, map[string]any{"component": "server", "event": "listening", "addr": addr})
	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logging.Error(loc, "otel", "tracing_shutdown_failed", err, nil)
	}
}
