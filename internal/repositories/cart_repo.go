package repositories

import (
	"context"

	"storefront/internal/models"
)

// CartRepository stores session carts.
type CartRepository interface {
	Get(ctx context.Context, sessionID string) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, sessionID string) error
}
