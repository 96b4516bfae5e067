package mysql

import (
	"context"
	"time"

	"nexo/internal/domain"
	"nexo/internal/models"
	"nexo/internal/repository"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Create(ctx context.Context, e *models.OutboxEvent) error {
	if e.Status == "" {
		e.Status = domain.OutboxPending
	}
	return translate(r.db.WithContext(ctx).Create(e).Error)
}

func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	var list []models.OutboxEvent
	err := r.db.WithContext(ctx).Where("status = ?", domain.OutboxPending).
		Order("id ASC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": domain.OutboxPublished, "published_at": at}).Error
}

// RecordFailure bumps attempts in place and fails the event once it reaches
// maxAttempts.
func (r *OutboxRepository) RecordFailure(ctx context.Context, id uint, reason string, maxAttempts int) error {
	if len(reason) > 512 {
		reason = reason[:512]
	}
	res := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ? AND status = ? AND attempts >= ?", id, domain.OutboxPending, maxAttempts).
		Update("status", domain.OutboxFailed).Error
}
