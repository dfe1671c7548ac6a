package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/services"
)

// LeadHandler handles booking-call requests.
type LeadHandler struct {
	service *services.LeadService
	logger  *zap.Logger
}

// NewLeadHandler creates a new LeadHandler.
func NewLeadHandler(service *services.LeadService, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{service: service, logger: logger}
}

// RegisterRoutes registers the lead routes with the Fiber app.
func (h *LeadHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/leads", h.HandleCapture)
}

// RegisterLegacyRoutes registers the pre-v1 booking endpoint.
func (h *LeadHandler) RegisterLegacyRoutes(router fiber.Router) {
	router.Post("/book-call", h.HandleCapture)
}

// HandleCapture stores a booking request and notifies both parties.
func (h *LeadHandler) HandleCapture(c *fiber.Ctx) error {
	var lead models.Lead
	if err := c.BodyParser(&lead); err != nil {
		return badBody(c, err)
	}

	result, err := h.service.Capture(c.UserContext(), lead)
	if err != nil {
		return respondError(c, h.logger, "Could not submit booking", err)
	}

	resp := fiber.Map{
		"message": "Booking submitted successfully, emails sent!",
		"account": result.Lead,
	}
	if result.NotificationErr != nil {
		resp["message"] = "Booking submitted successfully, but confirmation email failed"
		resp["warning"] = result.NotificationErr.Error()
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}
