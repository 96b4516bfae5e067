package models

import (
	"time"

	"gorm.io/gorm"
)

// Booking is a customer service request offered to partners as a lead.
type Booking struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CustomerName  string         `gorm:"size:128" json:"customer_name"`
	CustomerPhone string         `gorm:"size:20" json:"customer_phone"`
	ServiceName   string         `gorm:"size:128;not null" json:"service_name"`
	Address       string         `gorm:"size:512" json:"address"`
	City          string         `gorm:"size:64;index" json:"city"`
	AmountCents   int64          `gorm:"not null;default:0" json:"amount_cents"`
	ScheduledAt   *time.Time     `json:"scheduled_at"`
	Status        string         `gorm:"size:20;not null;index" json:"status"`
	PartnerID     *uint          `gorm:"index" json:"partner_id"`
	AssignedAt    *time.Time     `json:"assigned_at"`
	LeadFeeCents  int64          `gorm:"not null;default:0" json:"lead_fee_cents"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Booking) TableName() string {
	return "bookings"
}
