package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/notify"
)

func finalizeRequest() services.FinalizeRequest {
	return services.FinalizeRequest{
		AttemptID: "att-1",
		IntentID:  "pi_1",
		Buyer:     models.Buyer{Name: "Ada", Email: "ada@example.com"},
		Lines:     models.CartLines{line("consulting", "199", 1)},
		Total:     decimal.NewFromInt(199),
		Currency:  "usd",
	}
}

func newOrderService(repo *MockOrderRepository, notifier *MockNotifier, logger *zap.Logger) *services.OrderService {
	notifications := services.NewNotificationService(notifier, services.Contact{Email: "owner@example.com"}, 0)
	return services.NewOrderService(repo, notifications, logger)
}

func TestOrderService_Finalize(t *testing.T) {
	repo := new(MockOrderRepository)
	notifier := new(MockNotifier)
	service := newOrderService(repo, notifier, zap.NewNop())

	repo.On("GetByIntentID", mock.Anything, "pi_1").Return(nil, repositories.ErrNotFound).Once()
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil).Once()
	notifier.On("Notify", notificationsTo(notify.KindBusiness)).Return(nil).Once()
	notifier.On("Notify", notificationsTo(notify.KindBuyer)).Return(nil).Once()

	result, err := service.Finalize(context.Background(), finalizeRequest())

	require.NoError(t, err)
	assert.True(t, result.Paid)
	assert.True(t, result.Created)
	assert.Equal(t, services.MsgPaymentSucceeded, result.Message)
	assert.NoError(t, result.NotificationErr)
	assert.Equal(t, "pi_1", result.Order.IntentID)
	assert.True(t, result.Order.Total.Equal(decimal.NewFromInt(199)))
	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestOrderService_Finalize_NotificationFailureIsPartialSuccess(t *testing.T) {
	repo := new(MockOrderRepository)
	notifier := new(MockNotifier)
	service := newOrderService(repo, notifier, zap.NewNop())

	repo.On("GetByIntentID", mock.Anything, "pi_1").Return(nil, repositories.ErrNotFound).Once()
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil).Once()
	notifier.On("Notify", notificationsTo(notify.KindBusiness)).Return(errors.New("smtp: connection refused")).Once()
	notifier.On("Notify", notificationsTo(notify.KindBuyer)).Return(nil).Once()

	result, err := service.Finalize(context.Background(), finalizeRequest())

	require.NoError(t, err)
	assert.True(t, result.Paid)
	assert.Equal(t, "Payment succeeded, but confirmation email failed", result.Message)
	assert.ErrorIs(t, result.NotificationErr, services.ErrNotificationFailed)
	notifier.AssertNumberOfCalls(t, "Notify", 2)
}

func TestOrderService_Finalize_ExistingOrderIsReturned(t *testing.T) {
	repo := new(MockOrderRepository)
	notifier := new(MockNotifier)
	service := newOrderService(repo, notifier, zap.NewNop())

	existing := &models.Order{ID: "ord-1", IntentID: "pi_1"}
	repo.On("GetByIntentID", mock.Anything, "pi_1").Return(existing, nil).Once()

	result, err := service.Finalize(context.Background(), finalizeRequest())

	require.NoError(t, err)
	assert.Same(t, existing, result.Order)
	assert.False(t, result.Created)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "Notify", mock.Anything)
}

func TestOrderService_Finalize_PersistenceFailure(t *testing.T) {
	repo := new(MockOrderRepository)
	notifier := new(MockNotifier)
	core, logs := observer.New(zap.ErrorLevel)
	service := newOrderService(repo, notifier, zap.New(core))

	repo.On("GetByIntentID", mock.Anything, "pi_1").Return(nil, repositories.ErrNotFound).Once()
	repo.On("Create", mock.Anything, mock.Anything).Return(fmt.Errorf("failed to create order: disk full")).Once()

	result, err := service.Finalize(context.Background(), finalizeRequest())

	assert.ErrorIs(t, err, services.ErrFinalizationPersistenceFailed)
	assert.Nil(t, result)
	notifier.AssertNotCalled(t, "Notify", mock.Anything)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, true, logs.All()[0].ContextMap()["reconcile"])
}

func TestOrderService_Finalize_InvalidRequest(t *testing.T) {
	repo := new(MockOrderRepository)
	service := newOrderService(repo, new(MockNotifier), zap.NewNop())

	req := finalizeRequest()
	req.IntentID = ""
	_, err := service.Finalize(context.Background(), req)

	assert.ErrorIs(t, err, services.ErrInvalidRequest)
	repo.AssertNotCalled(t, "GetByIntentID", mock.Anything, mock.Anything)
}

func TestOrderService_GetOrderByID(t *testing.T) {
	repo := new(MockOrderRepository)
	service := newOrderService(repo, new(MockNotifier), zap.NewNop())

	repo.On("GetByID", mock.Anything, "missing").Return(nil, repositories.ErrNotFound).Once()

	_, err := service.GetOrderByID(context.Background(), "missing")
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
}

func TestOrderService_GetAllOrders(t *testing.T) {
	repo := new(MockOrderRepository)
	service := newOrderService(repo, new(MockNotifier), zap.NewNop())

	orders := []models.Order{{ID: "ord-2"}, {ID: "ord-1"}}
	repo.On("GetAll", mock.Anything).Return(orders, nil).Once()

	got, err := service.GetAllOrders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, orders, got)
	repo.AssertExpectations(t)
}
