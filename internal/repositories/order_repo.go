package repositories

import (
	"context"

	"storefront/internal/models"
)

// OrderRepository defines the interface for order data access.
// Orders are append-only: there is no update or delete.
type OrderRepository interface {
	GetAll(ctx context.Context) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByIntentID(ctx context.Context, intentID string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
}
