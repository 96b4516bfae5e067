package mysql

import (
	"context"

	"nexo/internal/models"

	"gorm.io/gorm"
)

// PaymentTransactionRepository persists the reporting ledger.
type PaymentTransactionRepository struct {
	db *gorm.DB
}

func NewPaymentTransactionRepository(db *gorm.DB) *PaymentTransactionRepository {
	return &PaymentTransactionRepository{db: db}
}

func (r *PaymentTransactionRepository) Create(ctx context.Context, p *models.PaymentTransaction) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *PaymentTransactionRepository) List(ctx context.Context, partnerID uint, feeType string, page, limit int) ([]models.PaymentTransaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.PaymentTransaction{})
	if partnerID != 0 {
		q = q.Where("partner_id = ?", partnerID)
	}
	if feeType != "" {
		q = q.Where("fee_type = ?", feeType)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.PaymentTransaction
	err := q.Order("created_at DESC").Limit(limit).Offset(offset(page, limit)).Find(&list).Error
	return list, total, err
}
