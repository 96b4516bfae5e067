package mysql

import (
	"context"

	"nexo/internal/models"

	"gorm.io/gorm"
)

type BookingRepository struct {
	db   *gorm.DB
	lock bool
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	return translate(r.db.WithContext(ctx).Create(b).Error)
}

func (r *BookingRepository) GetByID(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := forUpdate(r.db.WithContext(ctx), r.lock).First(&b, id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *BookingRepository) Update(ctx context.Context, b *models.Booking) error {
	return translate(r.db.WithContext(ctx).Save(b).Error)
}

func (r *BookingRepository) List(ctx context.Context, status string, page, limit int) ([]models.Booking, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Booking{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Booking
	err := q.Order("created_at DESC").Limit(limit).Offset(offset(page, limit)).Find(&list).Error
	return list, total, err
}

func (r *BookingRepository) ListByPartner(ctx context.Context, partnerID uint, limit, offset int) ([]models.Booking, error) {
	var list []models.Booking
	err := r.db.WithContext(ctx).Where("partner_id = ?", partnerID).
		Order("assigned_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}
