package app

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"storefront/internal/database"
	"storefront/internal/handlers"
)

// NewApp builds the Fiber application with every route registered.
func NewApp(r *Runtime) *fiber.App {
	app := fiber.New(fiber.Config{AppName: "storefront"})

	app.Use(recover.New())
	app.Use(logger.New())

	apiV1 := app.Group("/api/v1")

	handlers.NewCatalogHandler(r.Catalog, r.Logger).RegisterRoutes(apiV1)
	handlers.NewCartHandler(r.Carts, r.Logger).RegisterRoutes(apiV1)
	handlers.NewOrderHandler(r.Orders, r.Logger).RegisterRoutes(apiV1)
	handlers.NewWebhookHandler(r.Checkout, r.Verifier, r.Logger).RegisterRoutes(apiV1)

	checkoutHandler := handlers.NewCheckoutHandler(r.Checkout, r.Tokens, r.Logger)
	checkoutHandler.RegisterRoutes(apiV1)
	checkoutHandler.RegisterLegacyRoutes(app)

	leadHandler := handlers.NewLeadHandler(r.Leads, r.Logger)
	leadHandler.RegisterRoutes(apiV1)
	leadHandler.RegisterLegacyRoutes(app)

	app.Get("/health", r.handleHealth)

	return app
}

func (r *Runtime) handleHealth(c *fiber.Ctx) error {
	status := fiber.StatusOK
	body := fiber.Map{
		"status":          "healthy",
		"time":            time.Now().Format(time.RFC3339),
		"database":        "connected",
		"broker":          "disabled",
		"redis":           "disabled",
		"payment_breaker": r.Breaker.State(),
	}

	if err := database.Ping(r.DB); err != nil {
		status = fiber.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["database"] = err.Error()
	}
	if r.Redis != nil {
		body["redis"] = "connected"
		if err := r.Redis.Ping(c.UserContext()).Err(); err != nil {
			status = fiber.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["redis"] = err.Error()
		}
	}
	if r.MQ != nil {
		body["broker"] = "connected"
		if !r.MQ.Healthy() {
			status = fiber.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["broker"] = "disconnected"
		}
	}

	return c.Status(status).JSON(body)
}
