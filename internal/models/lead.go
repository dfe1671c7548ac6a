package models

import "time"

// Lead is a booking-call request captured from the services page.
type Lead struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"type:varchar(255)" validate:"required,max=255"`
	Email       string    `json:"email" gorm:"type:varchar(255)" validate:"required,email"`
	Phone       string    `json:"phone,omitempty" gorm:"type:varchar(40)" validate:"omitempty,max=40"`
	ServiceType string    `json:"service_type" gorm:"type:varchar(255)" validate:"omitempty,max=255"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName keeps leads in the accounts table.
func (Lead) TableName() string {
	return "accounts"
}
