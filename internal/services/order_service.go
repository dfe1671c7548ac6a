package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// Buyer-facing outcome messages.
const (
	MsgPaymentSucceeded          = "Payment succeeded, order confirmed"
	MsgPaymentSucceededNoConfirm = "Payment succeeded, but confirmation email failed"
)

// FinalizeRequest is everything known about a succeeded payment.
type FinalizeRequest struct {
	AttemptID string
	IntentID  string
	Buyer     models.Buyer
	Lines     models.CartLines
	Total     decimal.Decimal
	Currency  string
}

// FinalizeResult reports a finalized payment. Paid is always true when err is
// nil; NotificationErr is set when the order was recorded but a confirmation
// could not be sent.
type FinalizeResult struct {
	Order           *models.Order
	Paid            bool
	Created         bool
	Message         string
	NotificationErr error
}

// OrderService records completed purchases.
type OrderService struct {
	orderRepo     repositories.OrderRepository
	notifications *NotificationService
	logger        *zap.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository, notifications *NotificationService, logger *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo:     orderRepo,
		notifications: notifications,
		logger:        logger,
	}
}

// GetAllOrders retrieves all orders.
func (s *OrderService) GetAllOrders(ctx context.Context) ([]models.Order, error) {
	return s.orderRepo.GetAll(ctx)
}

// GetOrderByID retrieves a single order by its ID.
func (s *OrderService) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return order, err
}

// Finalize records the order for a succeeded payment and sends the business
// and buyer confirmations. At most one order exists per intent: finalizing an
// intent again returns the existing order and sends nothing.
func (s *OrderService) Finalize(ctx context.Context, req FinalizeRequest) (*FinalizeResult, error) {
	if req.IntentID == "" || req.Buyer.Email == "" || len(req.Lines) == 0 {
		return nil, fmt.Errorf("%w: intent, buyer email and items are required to finalize", ErrInvalidRequest)
	}

	existing, err := s.orderRepo.GetByIntentID(ctx, req.IntentID)
	switch {
	case err == nil:
		return &FinalizeResult{Order: existing, Paid: true, Message: MsgPaymentSucceeded}, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, s.persistenceFailed(req, err)
	}

	order := &models.Order{
		ID:        uuid.New().String(),
		IntentID:  req.IntentID,
		AttemptID: req.AttemptID,
		Buyer:     req.Buyer,
		Items:     req.Lines,
		Total:     req.Total,
		Currency:  req.Currency,
		CreatedAt: time.Now(),
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			if existing, getErr := s.orderRepo.GetByIntentID(ctx, req.IntentID); getErr == nil {
				return &FinalizeResult{Order: existing, Paid: true, Message: MsgPaymentSucceeded}, nil
			}
		}
		return nil, s.persistenceFailed(req, err)
	}

	s.logger.Info("order recorded",
		zap.String("order_id", order.ID), zap.String("intent_id", order.IntentID))

	result := &FinalizeResult{Order: order, Paid: true, Created: true, Message: MsgPaymentSucceeded}
	if err := s.notifications.OrderPlaced(ctx, order); err != nil {
		s.logger.Warn("order confirmation failed",
			zap.String("order_id", order.ID), zap.Error(err))
		result.Message = MsgPaymentSucceededNoConfirm
		result.NotificationErr = fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}
	return result, nil
}

func (s *OrderService) persistenceFailed(req FinalizeRequest, err error) error {
	s.logger.Error("payment captured but order not recorded",
		zap.Bool("reconcile", true),
		zap.String("intent_id", req.IntentID),
		zap.String("attempt_id", req.AttemptID),
		zap.String("buyer_email", req.Buyer.Email),
		zap.String("total", req.Total.StringFixed(2)),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %w", ErrFinalizationPersistenceFailed, err)
}
