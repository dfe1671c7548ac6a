package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"storefront/internal/services"
	"storefront/pkg/payment"
)

// SignatureHeader carries the processor's webhook signature.
const SignatureHeader = "Stripe-Signature"

// WebhookHandler receives processor callbacks and reconciles late outcomes.
type WebhookHandler struct {
	service  *services.CheckoutService
	verifier payment.EventVerifier
	logger   *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(service *services.CheckoutService, verifier payment.EventVerifier, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, verifier: verifier, logger: logger}
}

// RegisterRoutes registers the webhook route with the Fiber app.
func (h *WebhookHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/webhooks/payments", h.HandleEvent)
}

// HandleEvent verifies and applies one event. A 5xx asks the processor to
// redeliver.
func (h *WebhookHandler) HandleEvent(c *fiber.Ctx) error {
	event, err := h.verifier.ParseEvent(c.Body(), c.Get(SignatureHeader))
	if err != nil {
		h.logger.Warn("rejected webhook", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid webhook payload",
			"error":   err.Error(),
		})
	}

	if err := h.service.HandleEvent(c.UserContext(), event); err != nil {
		return respondError(c, h.logger, "Could not process webhook", err)
	}
	return c.JSON(fiber.Map{"received": true})
}
