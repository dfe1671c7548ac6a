package repositories

import (
	"context"

	"storefront/internal/models"
)

// AttemptUpdate carries the optional fields written alongside a state change.
type AttemptUpdate struct {
	FailureReason *string
	Buyer         *models.Buyer
}

// CheckoutAttemptRepository stores checkout attempts and their state machine.
type CheckoutAttemptRepository interface {
	Create(ctx context.Context, attempt *models.CheckoutAttempt) error
	GetByID(ctx context.Context, id string) (*models.CheckoutAttempt, error)
	GetByIntentID(ctx context.Context, intentID string) (*models.CheckoutAttempt, error)
	// Transition moves the attempt from one state to another only if it is
	// still in from. It returns ErrStaleState otherwise.
	Transition(ctx context.Context, id string, from, to models.AttemptState, update AttemptUpdate) error
	SetOrderID(ctx context.Context, id, orderID string) error
	// ListUnreconciled returns succeeded attempts that have no order recorded.
	ListUnreconciled(ctx context.Context) ([]models.CheckoutAttempt, error)
}
