package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeConfig holds the credentials for a Stripe account.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// StripeProcessor drives payment intents through the Stripe API.
type StripeProcessor struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProcessor creates a processor bound to its own API client.
func NewStripeProcessor(cfg StripeConfig) *StripeProcessor {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeProcessor{api: api, webhookSecret: cfg.WebhookSecret}
}

func (p *StripeProcessor) CreateIntent(ctx context.Context, params CreateParams) (*Intent, error) {
	sp := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(params.Amount),
		Currency:           stripe.String(params.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	sp.Context = ctx
	if params.IdempotencyKey != "" {
		sp.SetIdempotencyKey(params.IdempotencyKey)
	}
	for k, v := range params.Metadata {
		sp.AddMetadata(k, v)
	}

	pi, err := p.api.PaymentIntents.New(sp)
	if err != nil {
		return nil, translateStripeError(err)
	}
	return fromStripeIntent(pi), nil
}

func (p *StripeProcessor) ConfirmIntent(ctx context.Context, intentID, paymentMethod string) (*Intent, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethod),
	}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		return nil, translateStripeError(err)
	}
	return fromStripeIntent(pi), nil
}

func (p *StripeProcessor) GetIntent(ctx context.Context, intentID string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, translateStripeError(err)
	}
	return fromStripeIntent(pi), nil
}

func (p *StripeProcessor) CancelIntent(ctx context.Context, intentID string) (*Intent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Cancel(intentID, params)
	if err != nil {
		return nil, translateStripeError(err)
	}
	return fromStripeIntent(pi), nil
}

// ParseEvent verifies the Stripe-Signature header and decodes payment intent events.
func (p *StripeProcessor) ParseEvent(payload []byte, signature string) (*Event, error) {
	if p.webhookSecret == "" {
		return nil, errors.New("stripe webhook secret is not configured")
	}
	ev, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid stripe event: %w", err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent from event %s: %w", ev.ID, err)
	}
	out.Intent = *fromStripeIntent(&pi)
	return out, nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) *Intent {
	in := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		in.Status = StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		in.Status = StatusCanceled
	case stripe.PaymentIntentStatusProcessing:
		in.Status = StatusProcessing
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		// Stripe returns a failed confirmation to requires_payment_method.
		if pi.LastPaymentError != nil {
			in.Status = StatusFailed
			in.FailureReason = pi.LastPaymentError.Msg
		} else {
			in.Status = StatusRequiresConfirmation
		}
	default:
		in.Status = StatusRequiresConfirmation
	}
	return in
}

func translateStripeError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		if se.Type == stripe.ErrorTypeCard {
			return &DeclineError{Code: string(se.Code), Reason: se.Msg}
		}
		if se.Msg != "" {
			return fmt.Errorf("stripe: %s", se.Msg)
		}
	}
	return fmt.Errorf("stripe: %w", err)
}
