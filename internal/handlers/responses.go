package handlers

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"storefront/internal/services"
)

// errorStatus maps the service error taxonomy to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidRequest), errors.Is(err, services.ErrInvalidCatalogItem):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrConfirmationFailed):
		return fiber.StatusPaymentRequired
	case errors.Is(err, services.ErrIntentMismatch):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrAttemptNotFound), errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrCartNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrIllegalTransition), errors.Is(err, services.ErrCheckoutInProgress):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrIntentCreationFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes a JSON error body. Validation failures list the failing
// fields; declines carry the processor's reason as the message.
func respondError(c *fiber.Ctx, logger *zap.Logger, message string, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	status := errorStatus(err)
	var confirmErr *services.ConfirmationError
	switch {
	case errors.As(err, &confirmErr):
		message = confirmErr.Reason
	case errors.Is(err, services.ErrFinalizationPersistenceFailed):
		message = "Payment received, but your order could not be recorded. We will contact you shortly."
	}

	if status >= fiber.StatusInternalServerError {
		logger.Error(message, zap.String("path", c.Path()), zap.Error(err))
	} else {
		logger.Debug(message, zap.String("path", c.Path()), zap.Error(err))
	}

	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}
