package mysql

import (
	"context"
	"time"

	"nexo/internal/models"
	"nexo/internal/repository"

	"gorm.io/gorm"
)

type PartnerRepository struct {
	db   *gorm.DB
	lock bool
}

func NewPartnerRepository(db *gorm.DB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

func (r *PartnerRepository) Create(ctx context.Context, p *models.Partner) error {
	if p.Version == 0 {
		p.Version = 1
	}
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *PartnerRepository) GetByID(ctx context.Context, id uint) (*models.Partner, error) {
	var p models.Partner
	if err := forUpdate(r.db.WithContext(ctx), r.lock).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PartnerRepository) Update(ctx context.Context, p *models.Partner) error {
	res := r.db.WithContext(ctx).Model(&models.Partner{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]interface{}{
			"name":                   p.Name,
			"phone":                  p.Phone,
			"email":                  p.Email,
			"city":                   p.City,
			"fcm_token":              p.FCMToken,
			"current_plan_id":        p.CurrentPlanID,
			"lead_quota":             p.LeadQuota,
			"leads_used":             p.LeadsUsed,
			"subscribed_at":          p.SubscribedAt,
			"expires_at":             p.ExpiresAt,
			"lead_acceptance_paused": p.LeadAcceptancePaused,
			"version":                p.Version + 1,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrConflict
	}
	p.Version++
	return nil
}

func (r *PartnerRepository) List(ctx context.Context, search string, page, limit int) ([]models.Partner, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Partner{})
	if search != "" {
		q = q.Where("name LIKE ? OR phone LIKE ? OR city LIKE ?", "%"+search+"%", "%"+search+"%", "%"+search+"%")
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Partner
	err := q.Order("id DESC").Limit(limit).Offset(offset(page, limit)).Find(&list).Error
	return list, total, err
}

func (r *PartnerRepository) ListExpired(ctx context.Context, now time.Time) ([]models.Partner, error) {
	var list []models.Partner
	err := r.db.WithContext(ctx).
		Where("current_plan_id IS NOT NULL AND expires_at < ?", now).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *PartnerRepository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Partner, error) {
	var list []models.Partner
	err := r.db.WithContext(ctx).
		Where("current_plan_id IS NOT NULL AND expires_at >= ? AND expires_at < ?", from, to).
		Order("expires_at ASC").
		Find(&list).Error
	return list, err
}
