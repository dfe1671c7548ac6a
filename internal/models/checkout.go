package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AttemptState is the state of one checkout attempt.
type AttemptState string

const (
	AttemptNoIntent      AttemptState = "no_intent"
	AttemptIntentPending AttemptState = "intent_pending"
	AttemptConfirming    AttemptState = "confirming"
	AttemptSucceeded     AttemptState = "succeeded"
	AttemptFailed        AttemptState = "failed"
	AttemptCanceled      AttemptState = "canceled"
)

// failed -> confirming is a retry against the same payment intent.
var attemptTransitions = map[AttemptState][]AttemptState{
	AttemptNoIntent:      {AttemptIntentPending},
	AttemptIntentPending: {AttemptConfirming, AttemptCanceled},
	AttemptConfirming:    {AttemptSucceeded, AttemptFailed, AttemptCanceled},
	AttemptFailed:        {AttemptConfirming, AttemptCanceled},
}

// CanTransitionTo reports whether the attempt may move from s to next.
func (s AttemptState) CanTransitionTo(next AttemptState) bool {
	for _, allowed := range attemptTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsFinal reports whether no further transitions are possible.
func (s AttemptState) IsFinal() bool {
	return s == AttemptSucceeded || s == AttemptCanceled
}

// IsOpen reports whether the attempt can still be confirmed with its current intent.
func (s AttemptState) IsOpen() bool {
	return s == AttemptIntentPending || s == AttemptFailed
}

func (s AttemptState) String() string {
	return string(s)
}

// Buyer holds the contact details collected at payment time.
type Buyer struct {
	Name  string `json:"name" gorm:"type:varchar(255)" validate:"required,max=255"`
	Email string `json:"email" gorm:"type:varchar(255)" validate:"required,email"`
	Phone string `json:"phone,omitempty" gorm:"type:varchar(40)" validate:"omitempty,max=40"`
}

// CheckoutAttempt tracks one payment intent from creation to a terminal state.
type CheckoutAttempt struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SessionID     string          `json:"session_id,omitempty" gorm:"index;type:varchar(100)"`
	IntentID      string          `json:"intent_id" gorm:"uniqueIndex;type:varchar(255)"`
	ClientSecret  string          `json:"-" gorm:"type:varchar(255)"`
	Amount        int64           `json:"amount"` // minor units sent to the processor
	Currency      string          `json:"currency" gorm:"type:varchar(3)"`
	Fingerprint   string          `json:"-" gorm:"index;type:varchar(64)"`
	Lines         CartLines       `json:"items" gorm:"type:text"`
	Total         decimal.Decimal `json:"total" gorm:"type:numeric(12,2)"` // displayed total
	State         AttemptState    `json:"state" gorm:"index;type:varchar(20)"`
	FailureReason string          `json:"failure_reason,omitempty" gorm:"type:text"`
	Buyer         Buyer           `json:"buyer" gorm:"embedded;embeddedPrefix:buyer_"`
	OrderID       string          `json:"order_id,omitempty" gorm:"type:varchar(36)"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
