package repositories

import (
	"context"

	"storefront/internal/models"
)

// LeadRepository defines the interface for booking-call lead storage.
type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	GetAll(ctx context.Context) ([]models.Lead, error)
}
