package mysql

import (
	"context"

	"nexo/internal/models"

	"gorm.io/gorm"
)

type TopUpRepository struct {
	db   *gorm.DB
	lock bool
}

func NewTopUpRepository(db *gorm.DB) *TopUpRepository {
	return &TopUpRepository{db: db}
}

func (r *TopUpRepository) Create(ctx context.Context, t *models.TopUp) error {
	return translate(r.db.WithContext(ctx).Create(t).Error)
}

func (r *TopUpRepository) GetByID(ctx context.Context, id uint) (*models.TopUp, error) {
	var t models.TopUp
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *TopUpRepository) GetByProviderRef(ctx context.Context, ref string) (*models.TopUp, error) {
	var t models.TopUp
	err := forUpdate(r.db.WithContext(ctx), r.lock).Where("provider_ref = ?", ref).First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *TopUpRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.TopUp, error) {
	var t models.TopUp
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *TopUpRepository) Update(ctx context.Context, t *models.TopUp) error {
	return translate(r.db.WithContext(ctx).Save(t).Error)
}
