package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"nexo/internal/models"
	"nexo/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Notifier is the fire-and-forget notification sink. Implementations log
// failures and never return them.
type Notifier interface {
	NotifyPartner(ctx context.Context, partnerID uint, title, message, severity string)
	NotifyAllAdmins(ctx context.Context, title, message, severity string)
}

// Broadcaster pushes realtime events to a partner's open websocket sessions.
type Broadcaster interface {
	BroadcastToUser(userID uint, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) NotifyPartner(context.Context, uint, string, string, string) {}
func (nopNotifier) NotifyAllAdmins(context.Context, string, string, string)     {}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastToUser(uint, interface{}) {}

// Clock returns the current time; tests substitute a fixed one.
type Clock func() time.Time

// emit writes a domain event to the outbox within tx.
func emit(ctx context.Context, tx repository.Store, topic string, partnerID uint, payload map[string]interface{}) error {
	eventID := uuid.NewString()
	body := map[string]interface{}{
		"event_id":    eventID,
		"type":        topic,
		"partner_id":  partnerID,
		"occurred_at": time.Now().UTC(),
		"data":        payload,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return tx.Outbox().Create(ctx, &models.OutboxEvent{
		EventID:   eventID,
		Topic:     topic,
		PartnerID: partnerID,
		Payload:   datatypes.JSON(b),
	})
}

// recordPayment appends to the reporting ledger. Failures are logged only.
func recordPayment(ctx context.Context, store repository.Store, log *logrus.Logger, p *models.PaymentTransaction) {
	if err := store.Payments().Create(ctx, p); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"partner_id": p.PartnerID,
			"fee_type":   p.FeeType,
			"amount":     p.AmountCents,
		}).Error("failed to record payment transaction")
	}
}

func settingInt64(ctx context.Context, settings repository.SettingRepository, key string, fallback int64) int64 {
	v, err := settings.Get(ctx, key)
	if err != nil {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func settingBool(ctx context.Context, settings repository.SettingRepository, key string, fallback bool) bool {
	v, err := settings.Get(ctx, key)
	if err != nil {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// notFound maps repository.ErrNotFound onto a service sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	return err
}
