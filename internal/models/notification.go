package models

import (
	"time"

	"gorm.io/gorm"
)

type Notification struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	RecipientType string         `gorm:"size:20;not null;index:idx_notification_recipient" json:"recipient_type"` // PARTNER, ADMIN
	RecipientID   uint           `gorm:"not null;index:idx_notification_recipient" json:"recipient_id"`
	Severity      string         `gorm:"size:20;not null" json:"severity"`
	Title         string         `gorm:"size:255" json:"title"`
	Body          string         `gorm:"type:text" json:"body"`
	ReadAt        *time.Time     `json:"read_at"`
	CreatedAt     time.Time      `json:"created_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}
