package models

import (
	"time"

	"gorm.io/gorm"
)

// Wallet is a partner's prepaid balance. BalanceCents always equals the signed sum
// of its transactions; it is never floor-clamped and may go negative.
type Wallet struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	PartnerID    uint           `gorm:"uniqueIndex;not null" json:"partner_id"`
	BalanceCents int64          `gorm:"not null;default:0" json:"balance_cents"`
	Currency     string         `gorm:"size:3;default:'INR'" json:"currency"`
	Status       string         `gorm:"size:20;not null;default:'ACTIVE'" json:"status"`
	Version      uint           `gorm:"not null;default:1" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Wallet) TableName() string {
	return "wallets"
}
