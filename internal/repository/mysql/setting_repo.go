package mysql

import (
	"context"

	"nexo/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

func (r *SettingRepository) Get(ctx context.Context, key string) (string, error) {
	var s models.SystemSetting
	if err := r.db.WithContext(ctx).Where("`key` = ?", key).First(&s).Error; err != nil {
		return "", translate(err)
	}
	return s.Value, nil
}

func (r *SettingRepository) Set(ctx context.Context, key, value string, updatedBy *uint) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(&models.SystemSetting{Key: key, Value: value, UpdatedBy: updatedBy}).Error
}

func (r *SettingRepository) GetAll(ctx context.Context) ([]models.SystemSetting, error) {
	var list []models.SystemSetting
	err := r.db.WithContext(ctx).Order("`key` ASC").Find(&list).Error
	return list, err
}

func (r *SettingRepository) SeedDefaults(ctx context.Context, defaults map[string]string) error {
	for k, v := range defaults {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("`key` = ?", k).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := r.db.WithContext(ctx).Create(&models.SystemSetting{Key: k, Value: v}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
