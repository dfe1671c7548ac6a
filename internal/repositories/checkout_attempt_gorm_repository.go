package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront/internal/models"
)

// GORMCheckoutAttemptRepository is a GORM implementation of CheckoutAttemptRepository.
type GORMCheckoutAttemptRepository struct {
	db *gorm.DB
}

// NewGORMCheckoutAttemptRepository creates a new instance of GORMCheckoutAttemptRepository.
func NewGORMCheckoutAttemptRepository(db *gorm.DB) *GORMCheckoutAttemptRepository {
	return &GORMCheckoutAttemptRepository{db: db}
}

// Create inserts a new attempt.
func (r *GORMCheckoutAttemptRepository) Create(ctx context.Context, attempt *models.CheckoutAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("checkout attempt for intent %s: %w", attempt.IntentID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create checkout attempt: %w", err)
	}
	return nil
}

// GetByID retrieves an attempt by its ID.
func (r *GORMCheckoutAttemptRepository) GetByID(ctx context.Context, id string) (*models.CheckoutAttempt, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByIntentID retrieves the attempt that owns a payment intent.
func (r *GORMCheckoutAttemptRepository) GetByIntentID(ctx context.Context, intentID string) (*models.CheckoutAttempt, error) {
	return r.first(ctx, "intent_id = ?", intentID)
}

// Transition applies a compare-and-set state update.
func (r *GORMCheckoutAttemptRepository) Transition(ctx context.Context, id string, from, to models.AttemptState, update AttemptUpdate) error {
	changes := map[string]interface{}{
		"state":      to,
		"updated_at": time.Now(),
	}
	if update.FailureReason != nil {
		changes["failure_reason"] = *update.FailureReason
	}
	if update.Buyer != nil {
		changes["buyer_name"] = update.Buyer.Name
		changes["buyer_email"] = update.Buyer.Email
		changes["buyer_phone"] = update.Buyer.Phone
	}

	res := r.db.WithContext(ctx).Model(&models.CheckoutAttempt{}).
		Where("id = ? AND state = ?", id, from).
		Updates(changes)
	if res.Error != nil {
		return fmt.Errorf("failed to move checkout attempt %s to %s: %w", id, to, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("checkout attempt %s is no longer %s: %w", id, from, ErrStaleState)
	}
	return nil
}

// SetOrderID links the recorded order to its attempt.
func (r *GORMCheckoutAttemptRepository) SetOrderID(ctx context.Context, id, orderID string) error {
	res := r.db.WithContext(ctx).Model(&models.CheckoutAttempt{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"order_id": orderID, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to link order %s to attempt %s: %w", orderID, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("checkout attempt %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListUnreconciled returns succeeded attempts without an order, oldest first.
func (r *GORMCheckoutAttemptRepository) ListUnreconciled(ctx context.Context) ([]models.CheckoutAttempt, error) {
	var attempts []models.CheckoutAttempt
	err := r.db.WithContext(ctx).
		Where("state = ? AND (order_id = '' OR order_id IS NULL)", models.AttemptSucceeded).
		Order("updated_at asc").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unreconciled attempts: %w", err)
	}
	return attempts, nil
}

func (r *GORMCheckoutAttemptRepository) first(ctx context.Context, query string, arg string) (*models.CheckoutAttempt, error) {
	var attempt models.CheckoutAttempt
	if err := r.db.WithContext(ctx).First(&attempt, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("checkout attempt %s: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get checkout attempt %s: %w", arg, err)
	}
	return &attempt, nil
}
