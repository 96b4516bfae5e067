package mysql

import (
	"context"

	"nexo/internal/domain"
	"nexo/internal/models"

	"gorm.io/gorm"
)

type PlanHistoryRepository struct {
	db   *gorm.DB
	lock bool
}

func NewPlanHistoryRepository(db *gorm.DB) *PlanHistoryRepository {
	return &PlanHistoryRepository{db: db}
}

func (r *PlanHistoryRepository) Append(ctx context.Context, e *models.PlanHistoryEntry) error {
	return translate(r.db.WithContext(ctx).Create(e).Error)
}

func (r *PlanHistoryRepository) Update(ctx context.Context, e *models.PlanHistoryEntry) error {
	return translate(r.db.WithContext(ctx).Model(&models.PlanHistoryEntry{}).
		Where("id = ?", e.ID).
		Updates(map[string]interface{}{
			"expires_at":          e.ExpiresAt,
			"leads_consumed":      e.LeadsConsumed,
			"refund_status":       e.RefundStatus,
			"refund_processed_at": e.RefundProcessedAt,
			"note":                e.Note,
		}).Error)
}

func (r *PlanHistoryRepository) GetByID(ctx context.Context, id uint) (*models.PlanHistoryEntry, error) {
	var e models.PlanHistoryEntry
	if err := forUpdate(r.db.WithContext(ctx), r.lock).First(&e, id).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *PlanHistoryRepository) Latest(ctx context.Context, partnerID uint) (*models.PlanHistoryEntry, error) {
	var e models.PlanHistoryEntry
	err := forUpdate(r.db.WithContext(ctx), r.lock).
		Where("partner_id = ? AND action IN ?", partnerID, []string{domain.HistoryActionSubscribed, domain.HistoryActionRenewed}).
		Order("id DESC").
		First(&e).Error
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *PlanHistoryRepository) ListByPartner(ctx context.Context, partnerID uint) ([]models.PlanHistoryEntry, error) {
	var list []models.PlanHistoryEntry
	err := r.db.WithContext(ctx).Where("partner_id = ?", partnerID).Order("id DESC").Find(&list).Error
	return list, err
}

func (r *PlanHistoryRepository) TrimToRecent(ctx context.Context, partnerID uint, keep int) error {
	var keepIDs []uint
	err := r.db.WithContext(ctx).Model(&models.PlanHistoryEntry{}).
		Where("partner_id = ?", partnerID).
		Order("id DESC").
		Limit(keep).
		Pluck("id", &keepIDs).Error
	if err != nil {
		return err
	}
	if len(keepIDs) < keep {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("partner_id = ? AND id NOT IN ?", partnerID, keepIDs).
		Delete(&models.PlanHistoryEntry{}).Error
}
