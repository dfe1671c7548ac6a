package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"
)

// CheckoutHandler handles HTTP requests for the checkout flow.
type CheckoutHandler struct {
	service *services.CheckoutService
	tokens  *services.TokenIssuer
	logger  *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(service *services.CheckoutService, tokens *services.TokenIssuer, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: service, tokens: tokens, logger: logger}
}

// RegisterRoutes registers the checkout routes. Every step after intent
// creation requires the checkout token returned by it.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	checkoutRoutes := router.Group("/checkout")
	checkoutRoutes.Post("/intents", h.HandleBegin)

	tokenRequired := middleware.CheckoutTokenRequired(h.tokens)
	checkoutRoutes.Post("/confirm", tokenRequired, h.HandleConfirm)
	checkoutRoutes.Post("/complete", tokenRequired, h.HandleComplete)
	checkoutRoutes.Post("/cancel", tokenRequired, h.HandleCancel)
	checkoutRoutes.Get("/status", tokenRequired, h.HandleStatus)
}

// RegisterLegacyRoutes registers the pre-v1 intent endpoint used by the web client.
func (h *CheckoutHandler) RegisterLegacyRoutes(router fiber.Router) {
	router.Post("/create-payment-intent", h.HandleCreatePaymentIntent)
}

type beginRequest struct {
	SessionID string            `json:"session_id"`
	Items     []models.CartLine `json:"items"`
}

type confirmRequest struct {
	models.Buyer
	PaymentMethod string `json:"payment_method"`
}

type outcomeResponse struct {
	*services.CheckoutOutcome
	Warning string `json:"warning,omitempty"`
}

func toOutcomeResponse(out *services.CheckoutOutcome) outcomeResponse {
	resp := outcomeResponse{CheckoutOutcome: out}
	if out.NotificationErr != nil {
		resp.Warning = out.NotificationErr.Error()
	}
	return resp
}

func (h *CheckoutHandler) begin(c *fiber.Ctx) (*services.CheckoutSession, error) {
	var req beginRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.SessionID == "" {
		req.SessionID = c.Get("X-Session-ID")
	}
	return h.service.Begin(c.UserContext(), req.SessionID, req.Items)
}

// HandleBegin prices the submitted items and creates (or reuses) a payment intent.
func (h *CheckoutHandler) HandleBegin(c *fiber.Ctx) error {
	session, err := h.begin(c)
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			return c.Status(fe.Code).JSON(fiber.Map{"message": "Invalid request body", "error": fe.Message})
		}
		return respondError(c, h.logger, "Could not start checkout", err)
	}
	status := fiber.StatusCreated
	if session.Reused {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(session)
}

// HandleCreatePaymentIntent answers the legacy {items} -> {clientSecret} contract.
func (h *CheckoutHandler) HandleCreatePaymentIntent(c *fiber.Ctx) error {
	session, err := h.begin(c)
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		status := errorStatus(err)
		if status >= fiber.StatusInternalServerError {
			h.logger.Error("create payment intent failed", zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"clientSecret":  session.ClientSecret,
		"attemptId":     session.AttemptID,
		"checkoutToken": session.Token,
	})
}

// HandleConfirm submits the buyer's payment method for the attempt's intent.
func (h *CheckoutHandler) HandleConfirm(c *fiber.Ctx) error {
	var req confirmRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	outcome, err := h.service.Confirm(c.UserContext(), middleware.AttemptRef(c), req.Buyer, req.PaymentMethod)
	if err != nil {
		return respondError(c, h.logger, "Payment could not be confirmed", err)
	}
	return c.JSON(toOutcomeResponse(outcome))
}

// HandleComplete finalizes an attempt the client confirmed with the processor directly.
func (h *CheckoutHandler) HandleComplete(c *fiber.Ctx) error {
	var buyer models.Buyer
	if err := c.BodyParser(&buyer); err != nil {
		return badBody(c, err)
	}

	outcome, err := h.service.Complete(c.UserContext(), middleware.AttemptRef(c), buyer)
	if err != nil {
		return respondError(c, h.logger, "Order could not be completed", err)
	}
	return c.JSON(toOutcomeResponse(outcome))
}

// HandleCancel abandons the attempt.
func (h *CheckoutHandler) HandleCancel(c *fiber.Ctx) error {
	outcome, err := h.service.Cancel(c.UserContext(), middleware.AttemptRef(c))
	if err != nil {
		return respondError(c, h.logger, "Checkout could not be canceled", err)
	}
	return c.JSON(toOutcomeResponse(outcome))
}

// HandleStatus reports the attempt's state, and its order once paid.
func (h *CheckoutHandler) HandleStatus(c *fiber.Ctx) error {
	outcome, err := h.service.Status(c.UserContext(), middleware.AttemptRef(c))
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve checkout status", err)
	}
	return c.JSON(toOutcomeResponse(outcome))
}
