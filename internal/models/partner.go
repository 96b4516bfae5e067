package models

import (
	"time"

	"nexo/internal/domain"

	"gorm.io/gorm"
)

// Partner is a technician or franchisee who accepts booking leads.
// The plan subscription lives directly on the partner row.
type Partner struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:128;not null" json:"name"`
	Phone    string `gorm:"uniqueIndex;size:20;not null" json:"phone"`
	Email    string `gorm:"size:255" json:"email"`
	City     string `gorm:"size:64;index" json:"city"`
	FCMToken string `gorm:"size:512" json:"-"`

	// Plan subscription. A nil CurrentPlanID means free tier.
	CurrentPlanID        *uint      `gorm:"index" json:"current_plan_id"`
	LeadQuota            int        `gorm:"not null;default:0" json:"lead_quota"`
	LeadsUsed            int        `gorm:"not null;default:0" json:"leads_used"`
	SubscribedAt         *time.Time `json:"subscribed_at"`
	ExpiresAt            *time.Time `gorm:"index" json:"expires_at"`
	LeadAcceptancePaused bool       `gorm:"not null;default:false;index" json:"lead_acceptance_paused"`

	Version   uint           `gorm:"not null;default:1" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CurrentPlan *Plan `gorm:"foreignKey:CurrentPlanID" json:"current_plan,omitempty"`
}

func (Partner) TableName() string {
	return "partners"
}

// SubscriptionState derives UNSUBSCRIBED / ACTIVE / EXPIRED at time t.
func (p *Partner) SubscriptionState(t time.Time) string {
	if p.CurrentPlanID == nil {
		return domain.SubscriptionUnsubscribed
	}
	if p.IsExpired(t) {
		return domain.SubscriptionExpired
	}
	return domain.SubscriptionActive
}

// IsExpired reports whether the subscription period has passed at time t.
func (p *Partner) IsExpired(t time.Time) bool {
	return p.ExpiresAt != nil && t.After(*p.ExpiresAt)
}

// QuotaExhausted is true only for a bounded quota that is fully used.
func (p *Partner) QuotaExhausted() bool {
	return p.LeadQuota > 0 && p.LeadsUsed >= p.LeadQuota
}
