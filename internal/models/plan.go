package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Plan is a catalog subscription tier (MG plan).
type Plan struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	Name                  string          `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Description           string          `gorm:"size:512" json:"description"`
	PriceCents            int64           `gorm:"not null;default:0" json:"price_cents"`
	LeadsGuaranteed       int             `gorm:"not null;default:0" json:"leads_guaranteed"`
	CommissionRate        decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"commission_rate"`
	LeadFeeCents          int64           `gorm:"not null;default:0" json:"lead_fee_cents"`
	MinWalletBalanceCents int64           `gorm:"not null;default:0" json:"min_wallet_balance_cents"`
	ValidityMonths        int             `gorm:"not null;default:1" json:"validity_months"`
	IsActive              bool            `gorm:"not null;default:true;index" json:"is_active"`
	IsDefault             bool            `gorm:"not null;default:false;index" json:"is_default"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	DeletedAt             gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Plan) TableName() string {
	return "plans"
}

// PeriodEnd returns start plus one validity period.
func (p *Plan) PeriodEnd(start time.Time) time.Time {
	months := p.ValidityMonths
	if months <= 0 {
		months = 1
	}
	return start.AddDate(0, months, 0)
}
