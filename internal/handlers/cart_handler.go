package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/services"
)

// CartHandler handles HTTP requests for session carts.
type CartHandler struct {
	service *services.CartService
	logger  *zap.Logger
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{service: service, logger: logger}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/carts/:session")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Delete("/items/:itemId", h.HandleRemoveItem)
}

type addItemRequest struct {
	ItemID   string `json:"id"`
	Option   string `json:"option"`
	Quantity int    `json:"quantity"`
}

type cartResponse struct {
	*models.Cart
	Total decimal.Decimal `json:"total"`
}

func toCartResponse(cart *models.Cart) cartResponse {
	return cartResponse{Cart: cart, Total: cart.Total()}
}

// HandleGetCart returns the session's cart with its computed total.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	cart, err := h.service.GetCart(c.UserContext(), c.Params("session"))
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve cart", err)
	}
	return c.JSON(toCartResponse(cart))
}

// HandleAddItem adds a catalog item to the cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req addItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if req.ItemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Item id is required.",
		})
	}

	cart, err := h.service.AddItem(c.UserContext(), c.Params("session"), req.ItemID, req.Option, req.Quantity)
	if err != nil {
		return respondError(c, h.logger, "Could not add item to cart", err)
	}
	return c.Status(fiber.StatusCreated).JSON(toCartResponse(cart))
}

// HandleRemoveItem removes one line from the cart.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	cart, err := h.service.RemoveItem(c.UserContext(), c.Params("session"), c.Params("itemId"))
	if err != nil {
		return respondError(c, h.logger, "Could not remove item from cart", err)
	}
	return c.JSON(toCartResponse(cart))
}

// HandleClearCart empties the cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	if err := h.service.ClearCart(c.UserContext(), c.Params("session")); err != nil {
		return respondError(c, h.logger, "Could not clear cart", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
