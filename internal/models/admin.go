package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin is a back-office operator. Admins receive broadcast alerts from the lead engine.
type Admin struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name         string         `gorm:"size:128" json:"name"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	FCMToken     string         `gorm:"size:512" json:"-"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Admin) TableName() string {
	return "admins"
}
