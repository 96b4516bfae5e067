package mysql

import (
	"context"

	"nexo/internal/models"

	"gorm.io/gorm"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) Create(ctx context.Context, p *models.Plan) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *PlanRepository) Update(ctx context.Context, p *models.Plan) error {
	return translate(r.db.WithContext(ctx).Save(p).Error)
}

func (r *PlanRepository) GetByID(ctx context.Context, id uint) (*models.Plan, error) {
	var p models.Plan
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PlanRepository) GetByName(ctx context.Context, name string) (*models.Plan, error) {
	var p models.Plan
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PlanRepository) GetDefault(ctx context.Context) (*models.Plan, error) {
	var p models.Plan
	if err := r.db.WithContext(ctx).Where("is_default = ?", true).Order("id ASC").First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PlanRepository) List(ctx context.Context, activeOnly bool) ([]models.Plan, error) {
	q := r.db.WithContext(ctx).Model(&models.Plan{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var list []models.Plan
	err := q.Order("price_cents ASC, id ASC").Find(&list).Error
	return list, err
}

func (r *PlanRepository) ClearDefaultExcept(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Plan{}).
		Where("id <> ? AND is_default = ?", id, true).
		Update("is_default", false).Error
}
