package database

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"nexo/config"
	"nexo/internal/domain"
	"nexo/internal/models"
	"nexo/internal/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Admin{},
		&models.Plan{},
		&models.Partner{},
		&models.PlanHistoryEntry{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.Booking{},
		&models.PaymentTransaction{},
		&models.TopUp{},
		&models.Notification{},
		&models.SystemSetting{},
		&models.OutboxEvent{},
	)
}

// DefaultSettings are the admin-editable settings seeded at boot.
func DefaultSettings(cfg *config.LeadsConfig) map[string]string {
	return map[string]string{
		domain.SettingFreeTierLeadFee:       strconv.FormatInt(cfg.FreeTierLeadFeeCents, 10),
		domain.SettingFreeTierMinBalance:    strconv.FormatInt(cfg.FreeTierMinBalanceCents, 10),
		domain.SettingLowBalanceAdminAlerts: strconv.FormatBool(cfg.LowBalanceAdminAlerts),
	}
}

// Seed creates the configured admin account if it is missing and inserts
// default settings.
func Seed(ctx context.Context, store repository.Store, cfg *config.Config, log *logrus.Logger) error {
	if err := store.Settings().SeedDefaults(ctx, DefaultSettings(&cfg.Leads)); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(cfg.Admin.Email))
	if email == "" {
		return nil
	}
	_, err := store.Admins().GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &models.Admin{
		Email:        email,
		Name:         cfg.Admin.Name,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := store.Admins().Create(ctx, admin); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"email": admin.Email}).Info("seeded admin account")
	return nil
}
