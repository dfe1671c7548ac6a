// Package payment defines the payment-processor capability used by checkout
// and its implementations.
package payment

import (
	"context"
	"fmt"
)

// Status is the processor-reported state of a payment intent.
type Status string

const (
	StatusRequiresConfirmation Status = "requires_confirmation"
	StatusProcessing           Status = "processing"
	StatusSucceeded            Status = "succeeded"
	StatusFailed               Status = "failed"
	StatusCanceled             Status = "canceled"
)

// Intent is the service's read-through view of a processor payment intent.
type Intent struct {
	ID            string
	ClientSecret  string
	Amount        int64 // minor currency units
	Currency      string
	Status        Status
	FailureReason string
}

// CreateParams describes an intent to create.
type CreateParams struct {
	Amount         int64
	Currency       string
	IdempotencyKey string
	Metadata       map[string]string
}

// Processor is the capability to create and drive payment intents.
type Processor interface {
	CreateIntent(ctx context.Context, params CreateParams) (*Intent, error)
	ConfirmIntent(ctx context.Context, intentID, paymentMethod string) (*Intent, error)
	GetIntent(ctx context.Context, intentID string) (*Intent, error)
	CancelIntent(ctx context.Context, intentID string) (*Intent, error)
}

// Event is a verified asynchronous notification about an intent.
type Event struct {
	ID     string
	Type   string
	Intent Intent
}

// Event types delivered by processor callbacks.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventIntentCanceled  = "payment_intent.canceled"
)

// EventVerifier authenticates and decodes processor callbacks.
type EventVerifier interface {
	ParseEvent(payload []byte, signature string) (*Event, error)
}

// DeclineError is returned when the processor refuses the payment method.
// Reason is the processor's buyer-facing message.
type DeclineError struct {
	Code   string
	Reason string
}

func (e *DeclineError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("payment declined: %s", e.Reason)
	}
	return fmt.Sprintf("payment declined (%s): %s", e.Code, e.Reason)
}
