package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/provenance-service/internal/api/http/handlers"
	"github.com/spec-kit/provenance-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Products *handlers.ProductsHandler
	Metrics  *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	products := app.Group("/api/products")
	products.Post("/sign", cfg.Products.SignBatch)
	products.Post("/scan", cfg.Products.Scan)
	products.Post("/seller-scan", cfg.Products.SellerScan)
	products.Get("/scan-history", cfg.Products.History)
	products.Get("/batch/:batchId/download", cfg.Products.DownloadBatch)
}
