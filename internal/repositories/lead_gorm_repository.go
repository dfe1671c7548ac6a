package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront/internal/models"
)

// GORMLeadRepository is a GORM implementation of LeadRepository.
type GORMLeadRepository struct {
	db *gorm.DB
}

// NewGORMLeadRepository creates a new instance of GORMLeadRepository.
func NewGORMLeadRepository(db *gorm.DB) *GORMLeadRepository {
	return &GORMLeadRepository{
		db: db,
	}
}

// Create inserts a new lead into the accounts table.
func (r *GORMLeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(lead).Error; err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// GetAll retrieves all leads, newest first.
func (r *GORMLeadRepository) GetAll(ctx context.Context) ([]models.Lead, error) {
	var leads []models.Lead
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("failed to get leads: %w", err)
	}
	return leads, nil
}
