package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Test payment methods understood by the sandbox. They mirror the processor's
// documented test cards.
const (
	SandboxCardVisa              = "pm_card_visa"
	SandboxCardDeclined          = "pm_card_chargeDeclined"
	SandboxCardInsufficientFunds = "pm_card_chargeDeclinedInsufficientFunds"
	SandboxCardProcessing        = "pm_card_processing"
)

// MinimumCharge is the smallest amount, in minor units, the processor accepts.
const MinimumCharge = 50

var sandboxDeclines = map[string]*DeclineError{
	SandboxCardDeclined:          {Code: "card_declined", Reason: "Your card was declined."},
	SandboxCardInsufficientFunds: {Code: "card_declined", Reason: "Your card has insufficient funds."},
}

// SandboxProcessor is an in-memory processor for local development and tests.
type SandboxProcessor struct {
	intents     map[string]*Intent
	idempotency map[string]string
	mu          sync.Mutex
}

// NewSandboxProcessor creates a new instance of SandboxProcessor.
func NewSandboxProcessor() *SandboxProcessor {
	return &SandboxProcessor{
		intents:     make(map[string]*Intent),
		idempotency: make(map[string]string),
	}
}

func (p *SandboxProcessor) CreateIntent(ctx context.Context, params CreateParams) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if params.Amount < MinimumCharge {
		return nil, fmt.Errorf("amount must be at least %d %s minor units", MinimumCharge, params.Currency)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if id, ok := p.idempotency[params.IdempotencyKey]; ok && params.IdempotencyKey != "" {
		in := *p.intents[id]
		return &in, nil
	}

	id := "pi_sandbox_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	in := &Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.New().String()[:8],
		Amount:       params.Amount,
		Currency:     params.Currency,
		Status:       StatusRequiresConfirmation,
	}
	p.intents[id] = in
	if params.IdempotencyKey != "" {
		p.idempotency[params.IdempotencyKey] = id
	}
	out := *in
	return &out, nil
}

func (p *SandboxProcessor) ConfirmIntent(ctx context.Context, intentID, paymentMethod string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	in, ok := p.intents[intentID]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", intentID)
	}
	if in.Status == StatusSucceeded || in.Status == StatusCanceled {
		return nil, fmt.Errorf("payment intent %s is already %s", intentID, in.Status)
	}

	if decline, ok := sandboxDeclines[paymentMethod]; ok {
		in.Status = StatusFailed
		in.FailureReason = decline.Reason
		return nil, decline
	}
	switch {
	case paymentMethod == SandboxCardProcessing:
		in.Status = StatusProcessing
	case strings.HasPrefix(paymentMethod, "pm_"):
		in.Status = StatusSucceeded
		in.FailureReason = ""
	default:
		return nil, fmt.Errorf("no such payment method: %q", paymentMethod)
	}
	out := *in
	return &out, nil
}

func (p *SandboxProcessor) GetIntent(ctx context.Context, intentID string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	in, ok := p.intents[intentID]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", intentID)
	}
	out := *in
	return &out, nil
}

func (p *SandboxProcessor) CancelIntent(ctx context.Context, intentID string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	in, ok := p.intents[intentID]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", intentID)
	}
	if in.Status == StatusSucceeded {
		return nil, fmt.Errorf("payment intent %s has already succeeded", intentID)
	}
	in.Status = StatusCanceled
	out := *in
	return &out, nil
}

// Settle moves an intent to a terminal status out of band, the way a
// processor resolves asynchronous payments.
func (p *SandboxProcessor) Settle(intentID string, status Status, reason string) (*Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	in, ok := p.intents[intentID]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", intentID)
	}
	in.Status = status
	in.FailureReason = reason
	out := *in
	return &out, nil
}

type sandboxEvent struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	IntentID string `json:"intent_id"`
}

// ParseEvent decodes an unsigned sandbox callback {"id","type","intent_id"}
// and attaches the intent as currently known to the sandbox.
func (p *SandboxProcessor) ParseEvent(payload []byte, _ string) (*Event, error) {
	var raw sandboxEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("invalid sandbox event: %w", err)
	}
	if raw.Type == "" || raw.IntentID == "" {
		return nil, errors.New("invalid sandbox event: type and intent_id are required")
	}
	in, err := p.GetIntent(context.Background(), raw.IntentID)
	if err != nil {
		return nil, err
	}
	return &Event{ID: raw.ID, Type: raw.Type, Intent: *in}, nil
}
