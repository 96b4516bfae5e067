package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentTransaction is the reporting ledger: an audit trail of fees and top-ups
// kept apart from the wallet's own transaction log.
type PaymentTransaction struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	PartnerID   uint              `gorm:"not null;index" json:"partner_id"`
	AmountCents int64             `gorm:"not null" json:"amount_cents"`
	Status      string            `gorm:"size:20;not null;index" json:"status"`
	FeeType     string            `gorm:"size:20;not null;index" json:"fee_type"`
	Description string            `gorm:"size:255" json:"description"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
