package models

import (
	"time"

	"nexo/internal/domain"
)

// WalletTransaction is one append-only entry in a wallet's log. AmountCents is the
// positive magnitude; Type carries the sign. BalanceAfterCents snapshots the balance
// once this entry was applied.
type WalletTransaction struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	WalletID          uint      `gorm:"not null;index" json:"wallet_id"`
	PartnerID         uint      `gorm:"not null;index" json:"partner_id"`
	TransactionID     string    `gorm:"size:32;uniqueIndex;not null" json:"transaction_id"`
	Type              string    `gorm:"size:10;not null;index" json:"type"` // CREDIT, DEBIT
	AmountCents       int64     `gorm:"not null" json:"amount_cents"`
	BalanceAfterCents int64     `gorm:"not null" json:"balance_after_cents"`
	Description       string    `gorm:"size:255" json:"description"`
	Reference         string    `gorm:"size:128;index" json:"reference"`
	TeamMemberID      *uint     `json:"team_member_id,omitempty"`
	BookingID         *uint     `gorm:"index" json:"booking_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}

// SignedAmount is the amount with the sign implied by Type.
func (t *WalletTransaction) SignedAmount() int64 {
	if t.Type == domain.TxTypeDebit {
		return -t.AmountCents
	}
	return t.AmountCents
}
