package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlanHistoryEntry is a frozen snapshot of plan terms at subscription time.
// Entries are append-only; only LeadsConsumed, ExpiresAt and the refund fields move.
type PlanHistoryEntry struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	PartnerID             uint            `gorm:"not null;index" json:"partner_id"`
	PlanID                *uint           `gorm:"index" json:"plan_id"`
	Action                string          `gorm:"size:20;not null" json:"action"` // SUBSCRIBED, RENEWED, REMOVED
	PlanName              string          `gorm:"size:64" json:"plan_name"`
	PriceCents            int64           `json:"price_cents"`
	LeadsGuaranteed       int             `json:"leads_guaranteed"`
	CommissionRate        decimal.Decimal `gorm:"type:decimal(5,2)" json:"commission_rate"`
	LeadFeeCents          int64           `json:"lead_fee_cents"`
	MinWalletBalanceCents int64           `json:"min_wallet_balance_cents"`
	ValidityMonths        int             `json:"validity_months"`
	SubscribedAt          *time.Time      `json:"subscribed_at"`
	ExpiresAt             *time.Time      `json:"expires_at"`
	LeadsConsumed         int             `gorm:"not null;default:0" json:"leads_consumed"`
	RefundStatus          string          `gorm:"size:20;not null;index" json:"refund_status"`
	RefundProcessedAt     *time.Time      `json:"refund_processed_at"`
	Note                  string          `gorm:"size:255" json:"note,omitempty"`
	CreatedAt             time.Time       `gorm:"index" json:"created_at"`
}

func (PlanHistoryEntry) TableName() string {
	return "plan_history"
}

// NewPlanHistoryEntry snapshots plan terms for partnerID.
func NewPlanHistoryEntry(partnerID uint, plan *Plan, action, refundStatus string) *PlanHistoryEntry {
	id := plan.ID
	return &PlanHistoryEntry{
		PartnerID:             partnerID,
		PlanID:                &id,
		Action:                action,
		PlanName:              plan.Name,
		PriceCents:            plan.PriceCents,
		LeadsGuaranteed:       plan.LeadsGuaranteed,
		CommissionRate:        plan.CommissionRate,
		LeadFeeCents:          plan.LeadFeeCents,
		MinWalletBalanceCents: plan.MinWalletBalanceCents,
		ValidityMonths:        plan.ValidityMonths,
		RefundStatus:          refundStatus,
	}
}
