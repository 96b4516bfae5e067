package models

import (
	"time"

	"gorm.io/gorm"
)

// TopUp is a gateway order that credits a partner wallet once the provider confirms it.
type TopUp struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	PartnerID      uint           `gorm:"not null;index" json:"partner_id"`
	AmountCents    int64          `gorm:"not null" json:"amount_cents"`
	Currency       string         `gorm:"size:3;default:'INR'" json:"currency"`
	Provider       string         `gorm:"size:50;not null" json:"provider"`
	ProviderRef    string         `gorm:"size:255;uniqueIndex" json:"provider_ref"`
	Status         string         `gorm:"size:20;not null;index" json:"status"` // PENDING, COMPLETED, FAILED
	IdempotencyKey string         `gorm:"size:255;uniqueIndex" json:"-"`
	CheckoutURL    string         `gorm:"size:512" json:"checkout_url,omitempty"`
	TransactionID  string         `gorm:"size:32" json:"transaction_id,omitempty"`
	ExpiresAt      *time.Time     `json:"expires_at"`
	CompletedAt    *time.Time     `json:"completed_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (TopUp) TableName() string {
	return "top_ups"
}
