package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/pkg/payment"
)

var (
	minorUnitsPerMajor = decimal.NewFromInt(100)
	maxMinorUnits      = decimal.NewFromInt(math.MaxInt64)
)

// ChargeAmount computes the amount to charge in minor units. Lines priced at
// zero or below are charged at floor per unit; a zero quantity counts as one.
// The conversion to minor units happens once, on the summed total, and totals
// that do not fit in an int64 are rejected rather than truncated.
func ChargeAmount(lines []models.CartLine, floor decimal.Decimal) (int64, error) {
	if len(lines) == 0 {
		return 0, fmt.Errorf("%w: at least one line item is required", ErrInvalidRequest)
	}

	total := decimal.Zero
	for _, l := range lines {
		if l.Quantity < 0 || l.Quantity > models.MaxLineQuantity {
			return 0, fmt.Errorf("%w: %w: %s quantity %d, limit %d",
				ErrInvalidRequest, models.ErrQuantityOutOfRange, l.ItemID, l.Quantity, models.MaxLineQuantity)
		}
		price := l.UnitPrice
		if !price.IsPositive() {
			price = floor
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(l.Qty()))))
	}
	minor := total.Mul(minorUnitsPerMajor).Round(0)
	if minor.GreaterThan(maxMinorUnits) {
		return 0, fmt.Errorf("%w: charge of %s minor units is too large", ErrInvalidRequest, minor.String())
	}
	return minor.IntPart(), nil
}

// Quote is the authoritative amount for a set of lines.
type Quote struct {
	Amount   int64           `json:"amount"` // minor units charged
	Total    decimal.Decimal `json:"total"`  // displayed total, floor not applied
	Currency string          `json:"currency"`
}

// PricingConfig configures PricingService.
type PricingConfig struct {
	Floor    decimal.Decimal
	Currency string
	Timeout  time.Duration
}

// PricingService turns cart lines into a charge amount and a payment intent.
type PricingService struct {
	processor payment.Processor
	cfg       PricingConfig
	logger    *zap.Logger
}

func NewPricingService(processor payment.Processor, cfg PricingConfig, logger *zap.Logger) *PricingService {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &PricingService{processor: processor, cfg: cfg, logger: logger}
}

// Currency returns the single currency the storefront charges in.
func (s *PricingService) Currency() string {
	return s.cfg.Currency
}

func (s *PricingService) Quote(lines []models.CartLine) (Quote, error) {
	amount, err := ChargeAmount(lines, s.cfg.Floor)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Amount:   amount,
		Total:    models.CartLines(lines).Total(),
		Currency: s.cfg.Currency,
	}, nil
}

// CreateIntent asks the processor for one intent for the recomputed amount.
// Processor failures are returned as ErrIntentCreationFailed and never retried.
func (s *PricingService) CreateIntent(ctx context.Context, lines []models.CartLine, idempotencyKey string) (*payment.Intent, error) {
	quote, err := s.Quote(lines)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	intent, err := s.processor.CreateIntent(ctx, payment.CreateParams{
		Amount:         quote.Amount,
		Currency:       quote.Currency,
		IdempotencyKey: idempotencyKey,
		Metadata:       map[string]string{"checkout_attempt": idempotencyKey},
	})
	if err != nil {
		s.logger.Warn("payment intent creation failed",
			zap.Int64("amount", quote.Amount), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrIntentCreationFailed, err)
	}

	s.logger.Info("payment intent created",
		zap.String("intent_id", intent.ID), zap.Int64("amount", intent.Amount))
	return intent, nil
}
