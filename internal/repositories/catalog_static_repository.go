package repositories

import (
	"fmt"

	"storefront/internal/models"
)

// StaticCatalogRepository serves a catalog fixed at deploy time.
// It is never mutated after construction, so no locking is needed.
type StaticCatalogRepository struct {
	items []models.CatalogItem
	byID  map[string]int
}

// NewStaticCatalogRepository creates a catalog from items, keeping their order.
func NewStaticCatalogRepository(items []models.CatalogItem) *StaticCatalogRepository {
	r := &StaticCatalogRepository{
		items: make([]models.CatalogItem, len(items)),
		byID:  make(map[string]int, len(items)),
	}
	copy(r.items, items)
	for i, item := range r.items {
		r.byID[item.ID] = i
	}
	return r
}

// GetAll returns all catalog items in display order.
func (r *StaticCatalogRepository) GetAll() ([]models.CatalogItem, error) {
	list := make([]models.CatalogItem, len(r.items))
	copy(list, r.items)
	return list, nil
}

// GetByID returns a catalog item by its ID.
func (r *StaticCatalogRepository) GetByID(id string) (*models.CatalogItem, error) {
	i, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("catalog item %s: %w", id, ErrNotFound)
	}
	item := r.items[i]
	return &item, nil
}
