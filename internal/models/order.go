package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the append-only record of a completed purchase. Exactly one order
// exists per succeeded payment intent.
type Order struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	IntentID  string          `json:"intent_id" gorm:"uniqueIndex;type:varchar(255)"`
	AttemptID string          `json:"attempt_id" gorm:"index;type:varchar(36)"`
	Buyer     Buyer           `json:"buyer" gorm:"embedded"`
	Items     CartLines       `json:"items" gorm:"type:text"`
	Total     decimal.Decimal `json:"total" gorm:"type:numeric(12,2)"` // price at the time of confirmation
	Currency  string          `json:"currency" gorm:"type:varchar(3)"`
	CreatedAt time.Time       `json:"created_at"`
}
