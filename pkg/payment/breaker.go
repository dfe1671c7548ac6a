package payment

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerProcessor stops calling an unhealthy processor for a cool-down period.
// It never retries; a rejected call fails fast with gobreaker.ErrOpenState.
type BreakerProcessor struct {
	next Processor
	cb   *gobreaker.CircuitBreaker[*Intent]
}

// BreakerConfig tunes when the breaker opens.
type BreakerConfig struct {
	Name                string
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// NewBreakerProcessor wraps next with a circuit breaker. Declines are business
// outcomes and do not count as failures.
func NewBreakerProcessor(next Processor, cfg BreakerConfig) *BreakerProcessor {
	if cfg.Name == "" {
		cfg.Name = "payment-processor"
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			var decline *DeclineError
			return err == nil || errors.As(err, &decline)
		},
	}
	return &BreakerProcessor{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[*Intent](settings),
	}
}

func (b *BreakerProcessor) CreateIntent(ctx context.Context, params CreateParams) (*Intent, error) {
	return b.cb.Execute(func() (*Intent, error) {
		return b.next.CreateIntent(ctx, params)
	})
}

func (b *BreakerProcessor) ConfirmIntent(ctx context.Context, intentID, paymentMethod string) (*Intent, error) {
	return b.cb.Execute(func() (*Intent, error) {
		return b.next.ConfirmIntent(ctx, intentID, paymentMethod)
	})
}

func (b *BreakerProcessor) GetIntent(ctx context.Context, intentID string) (*Intent, error) {
	return b.cb.Execute(func() (*Intent, error) {
		return b.next.GetIntent(ctx, intentID)
	})
}

func (b *BreakerProcessor) CancelIntent(ctx context.Context, intentID string) (*Intent, error) {
	return b.cb.Execute(func() (*Intent, error) {
		return b.next.CancelIntent(ctx, intentID)
	})
}

// State reports the breaker state for health checks.
func (b *BreakerProcessor) State() string {
	return b.cb.State().String()
}
