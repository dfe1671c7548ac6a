package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/services"
)

// Locals keys set by CheckoutTokenRequired.
const (
	LocalAttemptID = "attempt_id"
	LocalIntentID  = "intent_id"
)

// CheckoutTokenHeader is an alternative to the Authorization header for
// clients that cannot set bearer tokens.
const CheckoutTokenHeader = "X-Checkout-Token"

// CheckoutTokenRequired is a Fiber middleware that checks for a valid checkout
// token and exposes the attempt and intent it was issued for.
func CheckoutTokenRequired(tokens *services.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Get(CheckoutTokenHeader)
		if tokenString == "" {
			authHeader := c.Get(fiber.HeaderAuthorization)
			if authHeader == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"message": "Checkout token is required",
				})
			}

			// Expected format: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if !(len(parts) == 2 && parts[0] == "Bearer") {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"message": "Authorization header format must be 'Bearer <token>'",
				})
			}
			tokenString = parts[1]
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired checkout token",
				"error":   err.Error(),
			})
		}

		c.Locals(LocalAttemptID, claims.AttemptID)
		c.Locals(LocalIntentID, claims.IntentID)

		return c.Next()
	}
}

// AttemptRef returns the attempt reference stored by CheckoutTokenRequired.
func AttemptRef(c *fiber.Ctx) services.AttemptRef {
	attemptID, _ := c.Locals(LocalAttemptID).(string)
	intentID, _ := c.Locals(LocalIntentID).(string)
	return services.AttemptRef{AttemptID: attemptID, IntentID: intentID}
}
