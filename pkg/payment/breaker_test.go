package payment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"storefront/pkg/payment"
)

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) CreateIntent(ctx context.Context, params payment.CreateParams) (*payment.Intent, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Intent), args.Error(1)
}

func (m *MockProcessor) ConfirmIntent(ctx context.Context, intentID, paymentMethod string) (*payment.Intent, error) {
	args := m.Called(ctx, intentID, paymentMethod)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Intent), args.Error(1)
}

func (m *MockProcessor) GetIntent(ctx context.Context, intentID string) (*payment.Intent, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Intent), args.Error(1)
}

func (m *MockProcessor) CancelIntent(ctx context.Context, intentID string) (*payment.Intent, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Intent), args.Error(1)
}

func TestBreakerProcessor_OpensAfterFailures(t *testing.T) {
	next := new(MockProcessor)
	next.On("CreateIntent", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Times(2)

	b := payment.NewBreakerProcessor(next, payment.BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute})
	ctx := context.Background()
	params := payment.CreateParams{Amount: 100, Currency: "usd"}

	_, err := b.CreateIntent(ctx, params)
	assert.Error(t, err)
	_, err = b.CreateIntent(ctx, params)
	assert.Error(t, err)

	// Open: the processor is not called again.
	_, err = b.CreateIntent(ctx, params)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, "open", b.State())
	next.AssertExpectations(t)
}

func TestBreakerProcessor_DeclinesDoNotTrip(t *testing.T) {
	next := new(MockProcessor)
	decline := &payment.DeclineError{Code: "card_declined", Reason: "Your card was declined."}
	next.On("ConfirmIntent", mock.Anything, "pi_1", "pm_bad").Return(nil, decline).Times(3)

	b := payment.NewBreakerProcessor(next, payment.BreakerConfig{ConsecutiveFailures: 2})

	for i := 0; i < 3; i++ {
		_, err := b.ConfirmIntent(context.Background(), "pi_1", "pm_bad")
		var got *payment.DeclineError
		assert.ErrorAs(t, err, &got)
	}
	assert.Equal(t, "closed", b.State())
	next.AssertExpectations(t)
}
