package models

import (
	"time"

	"gorm.io/datatypes"
)

// OutboxEvent is written in the same transaction as the state change it describes
// and relayed to the message broker afterwards.
type OutboxEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	EventID     string         `gorm:"size:36;uniqueIndex;not null" json:"event_id"`
	Topic       string         `gorm:"size:64;not null;index" json:"topic"`
	PartnerID   uint           `gorm:"index" json:"partner_id"`
	Payload     datatypes.JSON `gorm:"type:json" json:"payload"`
	Status      string         `gorm:"size:20;not null;index" json:"status"`
	Attempts    int            `gorm:"not null;default:0" json:"attempts"`
	LastError   string         `gorm:"size:512" json:"last_error,omitempty"`
	PublishedAt *time.Time     `json:"published_at"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}
