package repositories

import (
	"storefront/internal/models"
)

// CatalogRepository defines read access to the service catalog.
type CatalogRepository interface {
	GetAll() ([]models.CatalogItem, error)
	GetByID(id string) (*models.CatalogItem, error)
}
