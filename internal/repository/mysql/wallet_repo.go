package mysql

import (
	"context"
	"errors"

	"nexo/internal/domain"
	"nexo/internal/models"
	"nexo/internal/repository"

	"gorm.io/gorm"
)

type WalletRepository struct {
	db   *gorm.DB
	lock bool
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetByPartnerID(ctx context.Context, partnerID uint) (*models.Wallet, error) {
	var w models.Wallet
	err := forUpdate(r.db.WithContext(ctx), r.lock).Where("partner_id = ?", partnerID).First(&w).Error
	if err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

func (r *WalletRepository) GetOrCreate(ctx context.Context, partnerID uint, currency string) (*models.Wallet, error) {
	w, err := r.GetByPartnerID(ctx, partnerID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	w = &models.Wallet{PartnerID: partnerID, BalanceCents: 0, Currency: currency, Status: domain.WalletStatusActive, Version: 1}
	if err := translate(r.db.WithContext(ctx).Create(w).Error); err != nil {
		// Lost a creation race on the partner_id unique index.
		if errors.Is(err, repository.ErrDuplicate) {
			return r.GetByPartnerID(ctx, partnerID)
		}
		return nil, err
	}
	return w, nil
}

func (r *WalletRepository) Update(ctx context.Context, w *models.Wallet) error {
	res := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ? AND version = ?", w.ID, w.Version).
		Updates(map[string]interface{}{
			"balance_cents": w.BalanceCents,
			"currency":      w.Currency,
			"status":        w.Status,
			"version":       w.Version + 1,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrConflict
	}
	w.Version++
	return nil
}

func (r *WalletRepository) AppendTransaction(ctx context.Context, t *models.WalletTransaction) error {
	return translate(r.db.WithContext(ctx).Create(t).Error)
}

func (r *WalletRepository) TransactionIDExists(ctx context.Context, transactionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error
	return count > 0, err
}

func (r *WalletRepository) ListTransactions(ctx context.Context, partnerID uint, limit, offset int) ([]models.WalletTransaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).Where("partner_id = ?", partnerID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.WalletTransaction
	err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}
