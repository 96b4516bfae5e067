package mysql

import (
	"context"

	"nexo/internal/models"

	"gorm.io/gorm"
)

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) Create(ctx context.Context, a *models.Admin) error {
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

func (r *AdminRepository) GetByID(ctx context.Context, id uint) (*models.Admin, error) {
	var a models.Admin
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var a models.Admin
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *AdminRepository) ListActive(ctx context.Context) ([]models.Admin, error) {
	var list []models.Admin
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").Find(&list).Error
	return list, err
}
