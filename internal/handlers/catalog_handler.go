package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"storefront/internal/services"
)

// CatalogHandler handles HTTP requests for the service catalog.
type CatalogHandler struct {
	service *services.CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service *services.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{service: service, logger: logger}
}

// RegisterRoutes registers the catalog routes with the Fiber app.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	catalogRoutes := router.Group("/services")
	catalogRoutes.Get("/", h.HandleGetItems)
	catalogRoutes.Get("/:id", h.HandleGetItemByID)
}

// HandleGetItems lists every offering with its price tiers.
func (h *CatalogHandler) HandleGetItems(c *fiber.Ctx) error {
	items, err := h.service.GetAllItems()
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve services", err)
	}
	return c.JSON(items)
}

// HandleGetItemByID retrieves a single offering.
func (h *CatalogHandler) HandleGetItemByID(c *fiber.Ctx) error {
	item, err := h.service.GetItemByID(c.Params("id"))
	if err != nil {
		if errorStatus(err) == fiber.StatusBadRequest {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Service not found",
				"error":   err.Error(),
			})
		}
		return respondError(c, h.logger, "Could not retrieve service", err)
	}
	return c.JSON(item)
}
