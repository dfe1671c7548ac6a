package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// LeadResult reports a captured lead. NotificationErr is set when the lead was
// stored but a notification could not be sent.
type LeadResult struct {
	Lead            *models.Lead
	NotificationErr error
}

// LeadService captures booking-call requests.
type LeadService struct {
	repo          repositories.LeadRepository
	notifications *NotificationService
	validate      *validator.Validate
	logger        *zap.Logger
}

func NewLeadService(repo repositories.LeadRepository, notifications *NotificationService, logger *zap.Logger) *LeadService {
	return &LeadService{
		repo:          repo,
		notifications: notifications,
		validate:      validator.New(),
		logger:        logger,
	}
}

// Capture validates and stores the lead, then notifies the business and the
// prospect. Invalid input is rejected before anything is stored or sent.
func (s *LeadService) Capture(ctx context.Context, lead models.Lead) (*LeadResult, error) {
	lead.Name = strings.TrimSpace(lead.Name)
	lead.Email = strings.TrimSpace(lead.Email)
	if err := s.validate.Struct(lead); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	lead.ID = uuid.New().String()
	lead.CreatedAt = time.Now()
	if err := s.repo.Create(ctx, &lead); err != nil {
		return nil, fmt.Errorf("failed to save lead: %w", err)
	}

	result := &LeadResult{Lead: &lead}
	if err := s.notifications.LeadCaptured(ctx, &lead); err != nil {
		s.logger.Warn("lead notification failed", zap.String("lead_id", lead.ID), zap.Error(err))
		result.NotificationErr = fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}
	return result, nil
}

// GetAllLeads lists captured leads, newest first.
func (s *LeadService) GetAllLeads(ctx context.Context) ([]models.Lead, error) {
	return s.repo.GetAll(ctx)
}
