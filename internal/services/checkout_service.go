package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/payment"
)

const (
	reasonNotCompleted = "Payment was not completed"
	reasonCanceled     = "Payment was canceled"
)

// AttemptRef identifies a checkout attempt together with the intent the
// caller believes it belongs to.
type AttemptRef struct {
	AttemptID string
	IntentID  string
}

// CheckoutSession is returned when a checkout attempt begins.
type CheckoutSession struct {
	AttemptID    string              `json:"attempt_id"`
	IntentID     string              `json:"intent_id"`
	ClientSecret string              `json:"client_secret"`
	Amount       int64               `json:"amount"`
	Currency     string              `json:"currency"`
	Total        decimal.Decimal     `json:"total"`
	Items        models.CartLines    `json:"items"`
	State        models.AttemptState `json:"state"`
	Token        string              `json:"checkout_token"`
	ExpiresAt    time.Time           `json:"expires_at"`
	Reused       bool                `json:"reused"`
}

// CheckoutOutcome is the buyer-visible state of an attempt.
type CheckoutOutcome struct {
	AttemptID       string              `json:"attempt_id"`
	IntentID        string              `json:"intent_id"`
	State           models.AttemptState `json:"state"`
	Paid            bool                `json:"paid"`
	Message         string              `json:"message,omitempty"`
	FailureReason   string              `json:"failure_reason,omitempty"`
	Order           *models.Order       `json:"order,omitempty"`
	NotificationErr error               `json:"-"`
}

// CheckoutConfig configures CheckoutService.
type CheckoutConfig struct {
	IdempotencyWindow time.Duration
	ProcessorTimeout  time.Duration
	// PendingReservation bounds how long a fingerprint stays claimed before
	// its attempt is recorded. Defaults to twice ProcessorTimeout.
	PendingReservation time.Duration
}

// CheckoutService drives one checkout attempt from intent creation to order
// finalization. An order is only ever created after the processor reports the
// attempt's own intent as succeeded.
type CheckoutService struct {
	catalog   *CatalogService
	pricing   *PricingService
	carts     *CartService
	orders    *OrderService
	tokens    *TokenIssuer
	processor payment.Processor
	attempts  repositories.CheckoutAttemptRepository
	keys      repositories.IntentKeyStore
	cfg       CheckoutConfig
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewCheckoutService(
	catalog *CatalogService,
	pricing *PricingService,
	carts *CartService,
	orders *OrderService,
	tokens *TokenIssuer,
	processor payment.Processor,
	attempts repositories.CheckoutAttemptRepository,
	keys repositories.IntentKeyStore,
	cfg CheckoutConfig,
	logger *zap.Logger,
) *CheckoutService {
	if cfg.IdempotencyWindow == 0 {
		cfg.IdempotencyWindow = 10 * time.Minute
	}
	if cfg.ProcessorTimeout == 0 {
		cfg.ProcessorTimeout = 15 * time.Second
	}
	if cfg.PendingReservation == 0 {
		cfg.PendingReservation = 2 * cfg.ProcessorTimeout
	}
	if cfg.PendingReservation > cfg.IdempotencyWindow {
		cfg.PendingReservation = cfg.IdempotencyWindow
	}
	return &CheckoutService{
		catalog:   catalog,
		pricing:   pricing,
		carts:     carts,
		orders:    orders,
		tokens:    tokens,
		processor: processor,
		attempts:  attempts,
		keys:      keys,
		cfg:       cfg,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Begin prices the submitted lines from the catalog and creates a payment
// intent for them. Resubmitting the same cart within the idempotency window
// returns the attempt that is already open instead of creating a new intent.
func (s *CheckoutService) Begin(ctx context.Context, sessionID string, lines []models.CartLine) (*CheckoutSession, error) {
	resolved, err := s.catalog.ResolveLines(lines)
	if err != nil {
		return nil, err
	}
	if _, err := s.pricing.Quote(resolved); err != nil {
		return nil, err
	}

	fingerprint := Fingerprint(sessionID, s.pricing.Currency(), resolved)
	attemptID := uuid.New().String()

	existing, err := s.reserve(ctx, fingerprint, attemptID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Info("reusing open checkout attempt",
			zap.String("attempt_id", existing.ID), zap.String("intent_id", existing.IntentID))
		return s.session(existing, true)
	}

	intent, err := s.pricing.CreateIntent(ctx, resolved, attemptID)
	if err != nil {
		s.release(ctx, fingerprint)
		return nil, err
	}

	attempt := &models.CheckoutAttempt{
		ID:           attemptID,
		SessionID:    sessionID,
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
		Fingerprint:  fingerprint,
		Lines:        resolved,
		Total:        resolved.Total(),
		State:        models.AttemptIntentPending,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		s.release(ctx, fingerprint)
		s.cancelIntent(ctx, intent.ID)
		return nil, fmt.Errorf("failed to record checkout attempt: %w", err)
	}
	if err := s.keys.Extend(ctx, fingerprint, attemptID, s.cfg.IdempotencyWindow); err != nil {
		s.logger.Warn("failed to extend idempotency key", zap.String("attempt_id", attemptID), zap.Error(err))
	}

	s.logger.Info("checkout attempt started",
		zap.String("attempt_id", attempt.ID),
		zap.String("intent_id", attempt.IntentID),
		zap.Int64("amount", attempt.Amount))
	return s.session(attempt, false)
}

// reserve claims the fingerprint for attemptID. It returns the open attempt
// already holding the fingerprint, if any.
func (s *CheckoutService) reserve(ctx context.Context, fingerprint, attemptID string) (*models.CheckoutAttempt, error) {
	for round := 0; round < 2; round++ {
		holder, reserved, err := s.keys.Reserve(ctx, fingerprint, attemptID, s.cfg.PendingReservation)
		if err != nil {
			s.logger.Warn("idempotency store unavailable, continuing without duplicate suppression", zap.Error(err))
			return nil, nil
		}
		if reserved {
			return nil, nil
		}

		held, err := s.attempts.GetByID(ctx, holder)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			// The holder is still creating its intent. Its claim lapses after
			// PendingReservation if it never records the attempt.
			return nil, ErrCheckoutInProgress
		case err != nil:
			return nil, fmt.Errorf("failed to load checkout attempt: %w", err)
		case held.State.IsOpen():
			return held, nil
		}
		s.release(ctx, fingerprint)
	}
	return nil, ErrCheckoutInProgress
}

func (s *CheckoutService) session(attempt *models.CheckoutAttempt, reused bool) (*CheckoutSession, error) {
	token, expiresAt, err := s.tokens.Issue(attempt)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{
		AttemptID:    attempt.ID,
		IntentID:     attempt.IntentID,
		ClientSecret: attempt.ClientSecret,
		Amount:       attempt.Amount,
		Currency:     attempt.Currency,
		Total:        attempt.Total,
		Items:        attempt.Lines,
		State:        attempt.State,
		Token:        token,
		ExpiresAt:    expiresAt,
		Reused:       reused,
	}, nil
}

// Confirm submits the buyer's payment method for the attempt's intent. A
// decline moves the attempt to failed and can be retried with the same intent.
func (s *CheckoutService) Confirm(ctx context.Context, ref AttemptRef, buyer models.Buyer, paymentMethod string) (*CheckoutOutcome, error) {
	if err := s.validate.Struct(buyer); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if paymentMethod == "" {
		return nil, fmt.Errorf("%w: payment method is required", ErrInvalidRequest)
	}

	attempt, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if attempt.State == models.AttemptSucceeded {
		return s.finalize(ctx, attempt, buyer)
	}
	if err := s.transition(ctx, attempt, models.AttemptConfirming, repositories.AttemptUpdate{Buyer: &buyer}); err != nil {
		return nil, err
	}
	attempt.Buyer = buyer

	pctx, cancel := context.WithTimeout(ctx, s.cfg.ProcessorTimeout)
	defer cancel()

	intent, err := s.processor.ConfirmIntent(pctx, attempt.IntentID, paymentMethod)
	if err != nil {
		reason := err.Error()
		var decline *payment.DeclineError
		if errors.As(err, &decline) {
			reason = decline.Reason
		}
		return nil, s.fail(ctx, attempt, reason)
	}
	return s.settle(ctx, attempt, intent, buyer)
}

// Complete finalizes an attempt that the client confirmed directly with the
// processor. The intent is re-read from the processor and only a succeeded
// intent with the attempt's id is accepted.
func (s *CheckoutService) Complete(ctx context.Context, ref AttemptRef, buyer models.Buyer) (*CheckoutOutcome, error) {
	if err := s.validate.Struct(buyer); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	attempt, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if attempt.State == models.AttemptSucceeded {
		return s.finalize(ctx, attempt, buyer)
	}
	if !attempt.State.CanTransitionTo(models.AttemptConfirming) {
		return nil, fmt.Errorf("%w: attempt is %s", ErrIllegalTransition, attempt.State)
	}

	pctx, cancel := context.WithTimeout(ctx, s.cfg.ProcessorTimeout)
	defer cancel()

	intent, err := s.processor.GetIntent(pctx, attempt.IntentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfirmationFailed, err)
	}
	if intent.ID != attempt.IntentID {
		return nil, ErrIntentMismatch
	}

	if err := s.transition(ctx, attempt, models.AttemptConfirming, repositories.AttemptUpdate{Buyer: &buyer}); err != nil {
		return nil, err
	}
	attempt.Buyer = buyer
	return s.settle(ctx, attempt, intent, buyer)
}

// settle applies the processor's verdict to a confirming attempt.
func (s *CheckoutService) settle(ctx context.Context, attempt *models.CheckoutAttempt, intent *payment.Intent, buyer models.Buyer) (*CheckoutOutcome, error) {
	switch intent.Status {
	case payment.StatusSucceeded:
		if err := s.transition(ctx, attempt, models.AttemptSucceeded, repositories.AttemptUpdate{}); err != nil {
			// A processor callback may have settled the attempt first.
			fresh, loadErr := s.attempts.GetByID(ctx, attempt.ID)
			if !errors.Is(err, ErrIllegalTransition) || loadErr != nil || fresh.State != models.AttemptSucceeded {
				return nil, err
			}
			attempt = fresh
		}
		return s.finalize(ctx, attempt, buyer)
	case payment.StatusFailed:
		reason := intent.FailureReason
		if reason == "" {
			reason = reasonNotCompleted
		}
		return nil, s.fail(ctx, attempt, reason)
	case payment.StatusCanceled:
		if err := s.transition(ctx, attempt, models.AttemptCanceled, repositories.AttemptUpdate{}); err != nil {
			return nil, err
		}
		s.release(ctx, attempt.Fingerprint)
		return nil, &ConfirmationError{Reason: reasonCanceled}
	default:
		return nil, s.fail(ctx, attempt, reasonNotCompleted)
	}
}

// fail moves a confirming attempt to failed and returns the buyer-facing error.
func (s *CheckoutService) fail(ctx context.Context, attempt *models.CheckoutAttempt, reason string) error {
	if err := s.transition(ctx, attempt, models.AttemptFailed, repositories.AttemptUpdate{FailureReason: &reason}); err != nil {
		return err
	}
	s.logger.Info("payment confirmation failed",
		zap.String("attempt_id", attempt.ID), zap.String("reason", reason))
	return &ConfirmationError{Reason: reason}
}

// finalize records the order for a succeeded attempt. Buyer details stored on
// the attempt take precedence over the ones supplied by the caller.
func (s *CheckoutService) finalize(ctx context.Context, attempt *models.CheckoutAttempt, buyer models.Buyer) (*CheckoutOutcome, error) {
	if attempt.Buyer.Email != "" {
		buyer = attempt.Buyer
	}

	result, err := s.orders.Finalize(ctx, FinalizeRequest{
		AttemptID: attempt.ID,
		IntentID:  attempt.IntentID,
		Buyer:     buyer,
		Lines:     attempt.Lines,
		Total:     attempt.Total,
		Currency:  attempt.Currency,
	})
	if err != nil {
		return nil, err
	}

	if attempt.OrderID != result.Order.ID {
		if err := s.attempts.SetOrderID(ctx, attempt.ID, result.Order.ID); err != nil {
			s.logger.Warn("failed to link order to checkout attempt",
				zap.String("attempt_id", attempt.ID), zap.String("order_id", result.Order.ID), zap.Error(err))
		}
	}
	if result.Created {
		if err := s.carts.ClearCart(ctx, attempt.SessionID); err != nil {
			s.logger.Warn("failed to clear cart", zap.String("session_id", attempt.SessionID), zap.Error(err))
		}
		s.release(ctx, attempt.Fingerprint)
	}

	return &CheckoutOutcome{
		AttemptID:       attempt.ID,
		IntentID:        attempt.IntentID,
		State:           models.AttemptSucceeded,
		Paid:            true,
		Message:         result.Message,
		Order:           result.Order,
		NotificationErr: result.NotificationErr,
	}, nil
}

// Cancel abandons the attempt. The processor intent is canceled on a best
// effort basis and the session's cart is cleared.
func (s *CheckoutService) Cancel(ctx context.Context, ref AttemptRef) (*CheckoutOutcome, error) {
	attempt, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if attempt.State != models.AttemptCanceled {
		if err := s.transition(ctx, attempt, models.AttemptCanceled, repositories.AttemptUpdate{}); err != nil {
			return nil, err
		}
		s.cancelIntent(ctx, attempt.IntentID)
		s.release(ctx, attempt.Fingerprint)
		if err := s.carts.ClearCart(ctx, attempt.SessionID); err != nil {
			s.logger.Warn("failed to clear cart", zap.String("session_id", attempt.SessionID), zap.Error(err))
		}
	}
	return outcomeOf(attempt), nil
}

// Status reports the attempt's current state.
func (s *CheckoutService) Status(ctx context.Context, ref AttemptRef) (*CheckoutOutcome, error) {
	attempt, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	out := outcomeOf(attempt)
	if attempt.OrderID != "" {
		if order, err := s.orders.GetOrderByID(ctx, attempt.OrderID); err == nil {
			out.Order = order
		}
	}
	return out, nil
}

// HandleEvent reconciles a processor callback with the attempt for its intent.
// Late successes are finalized when the buyer's details are already known;
// otherwise the attempt is left succeeded without an order for Unreconciled.
func (s *CheckoutService) HandleEvent(ctx context.Context, event *payment.Event) error {
	attempt, err := s.attempts.GetByIntentID(ctx, event.Intent.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		s.logger.Info("ignoring event for unknown intent",
			zap.String("event_id", event.ID), zap.String("intent_id", event.Intent.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load checkout attempt: %w", err)
	}

	log := s.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("attempt_id", attempt.ID),
		zap.String("state", attempt.State.String()),
	)

	switch event.Type {
	case payment.EventIntentSucceeded:
		switch attempt.State {
		case models.AttemptCanceled:
			log.Error("payment succeeded for a canceled checkout", zap.Bool("reconcile", true))
			return nil
		case models.AttemptIntentPending, models.AttemptFailed:
			if err := s.transition(ctx, attempt, models.AttemptConfirming, repositories.AttemptUpdate{}); err != nil {
				return err
			}
			fallthrough
		case models.AttemptConfirming:
			if err := s.transition(ctx, attempt, models.AttemptSucceeded, repositories.AttemptUpdate{}); err != nil {
				return err
			}
		}
		if attempt.OrderID != "" {
			return nil
		}
		if attempt.Buyer.Email == "" {
			log.Warn("payment succeeded before buyer details were submitted", zap.Bool("reconcile", true))
			return nil
		}
		_, err := s.finalize(ctx, attempt, attempt.Buyer)
		return err

	case payment.EventIntentFailed:
		if attempt.State != models.AttemptConfirming {
			return nil
		}
		reason := event.Intent.FailureReason
		if reason == "" {
			reason = reasonNotCompleted
		}
		if err := s.transition(ctx, attempt, models.AttemptFailed, repositories.AttemptUpdate{FailureReason: &reason}); err != nil {
			return err
		}
		return nil

	case payment.EventIntentCanceled:
		if !attempt.State.CanTransitionTo(models.AttemptCanceled) {
			return nil
		}
		if err := s.transition(ctx, attempt, models.AttemptCanceled, repositories.AttemptUpdate{}); err != nil {
			return err
		}
		s.release(ctx, attempt.Fingerprint)
		return nil
	}

	log.Debug("ignoring unhandled event type")
	return nil
}

// Unreconciled lists succeeded attempts that have no order.
func (s *CheckoutService) Unreconciled(ctx context.Context) ([]models.CheckoutAttempt, error) {
	return s.attempts.ListUnreconciled(ctx)
}

// RetryFinalization finalizes a succeeded attempt that has no order yet.
func (s *CheckoutService) RetryFinalization(ctx context.Context, attemptID string) (*CheckoutOutcome, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	if attempt.State != models.AttemptSucceeded {
		return nil, fmt.Errorf("%w: attempt is %s", ErrIllegalTransition, attempt.State)
	}
	if attempt.Buyer.Email == "" {
		return nil, fmt.Errorf("%w: buyer details unknown for attempt %s", ErrInvalidRequest, attempt.ID)
	}
	return s.finalize(ctx, attempt, attempt.Buyer)
}

func (s *CheckoutService) load(ctx context.Context, ref AttemptRef) (*models.CheckoutAttempt, error) {
	attempt, err := s.attempts.GetByID(ctx, ref.AttemptID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkout attempt: %w", err)
	}
	if attempt.IntentID != ref.IntentID {
		return nil, ErrIntentMismatch
	}
	return attempt, nil
}

// transition applies a guarded state change and updates attempt in place.
func (s *CheckoutService) transition(ctx context.Context, attempt *models.CheckoutAttempt, to models.AttemptState, update repositories.AttemptUpdate) error {
	from := attempt.State
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	if update.FailureReason == nil && to != models.AttemptFailed {
		cleared := ""
		update.FailureReason = &cleared
	}
	err := s.attempts.Transition(ctx, attempt.ID, from, to, update)
	if errors.Is(err, repositories.ErrStaleState) {
		return fmt.Errorf("%w: %s -> %s: %w", ErrIllegalTransition, from, to, err)
	}
	if err != nil {
		return fmt.Errorf("failed to update checkout attempt: %w", err)
	}

	attempt.State = to
	if update.FailureReason != nil {
		attempt.FailureReason = *update.FailureReason
	}
	if update.Buyer != nil {
		attempt.Buyer = *update.Buyer
	}
	return nil
}

func (s *CheckoutService) release(ctx context.Context, fingerprint string) {
	if fingerprint == "" {
		return
	}
	if err := s.keys.Release(ctx, fingerprint); err != nil {
		s.logger.Warn("failed to release idempotency key", zap.Error(err))
	}
}

func (s *CheckoutService) cancelIntent(ctx context.Context, intentID string) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ProcessorTimeout)
	defer cancel()
	if _, err := s.processor.CancelIntent(ctx, intentID); err != nil {
		s.logger.Warn("failed to cancel payment intent", zap.String("intent_id", intentID), zap.Error(err))
	}
}

func outcomeOf(attempt *models.CheckoutAttempt) *CheckoutOutcome {
	out := &CheckoutOutcome{
		AttemptID:     attempt.ID,
		IntentID:      attempt.IntentID,
		State:         attempt.State,
		Paid:          attempt.State == models.AttemptSucceeded,
		FailureReason: attempt.FailureReason,
	}
	switch attempt.State {
	case models.AttemptSucceeded:
		out.Message = MsgPaymentSucceeded
	case models.AttemptCanceled:
		out.Message = reasonCanceled
	}
	return out
}
