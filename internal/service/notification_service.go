package service

import (
	"context"
	"fmt"
	"html"

	"nexo/internal/domain"
	"nexo/internal/models"
	"nexo/internal/repository"

	"github.com/sirupsen/logrus"
)

// NotificationService persists in-app notifications and fans them out to
// push, websocket and (for admins) e-mail. Delivery failures are logged and
// never returned to the caller.
type NotificationService struct {
	store    repository.Store
	push     PushSender
	mailer   Mailer
	realtime Broadcaster
	log      *logrus.Logger
}

func NewNotificationService(store repository.Store, push PushSender, mailer Mailer, realtime Broadcaster, log *logrus.Logger) *NotificationService {
	if realtime == nil {
		realtime = nopBroadcaster{}
	}
	return &NotificationService{store: store, push: push, mailer: mailer, realtime: realtime, log: log}
}

func (s *NotificationService) NotifyPartner(ctx context.Context, partnerID uint, title, message, severity string) {
	n := &models.Notification{
		RecipientType: domain.RecipientPartner,
		RecipientID:   partnerID,
		Severity:      severity,
		Title:         title,
		Body:          message,
	}
	entry := s.log.WithFields(logrus.Fields{"partner_id": partnerID, "title": title})
	if err := s.store.Notifications().Create(ctx, n); err != nil {
		entry.WithError(err).Error("failed to store partner notification")
	}
	s.realtime.BroadcastToUser(partnerID, map[string]interface{}{
		"type":         domain.EventNotification,
		"notification": n,
	})
	if s.push == nil {
		return
	}
	partner, err := s.store.Partners().GetByID(ctx, partnerID)
	if err != nil {
		entry.WithError(err).Warn("failed to load partner for push")
		return
	}
	if partner.FCMToken == "" {
		return
	}
	if err := s.push.SendToUser(ctx, partner.FCMToken, domain.EventNotification, title, message,
		map[string]interface{}{"severity": severity, "notification_id": n.ID}); err != nil {
		entry.WithError(err).Warn("failed to push partner notification")
	}
}

func (s *NotificationService) NotifyAllAdmins(ctx context.Context, title, message, severity string) {
	admins, err := s.store.Admins().ListActive(ctx)
	if err != nil {
		s.log.WithError(err).WithField("title", title).Error("failed to list admins for notification")
		return
	}
	for _, a := range admins {
		entry := s.log.WithFields(logrus.Fields{"admin_id": a.ID, "title": title})
		n := &models.Notification{
			RecipientType: domain.RecipientAdmin,
			RecipientID:   a.ID,
			Severity:      severity,
			Title:         title,
			Body:          message,
		}
		if err := s.store.Notifications().Create(ctx, n); err != nil {
			entry.WithError(err).Error("failed to store admin notification")
		}
		if s.push != nil && a.FCMToken != "" {
			if err := s.push.SendToUser(ctx, a.FCMToken, domain.EventNotification, title, message,
				map[string]interface{}{"severity": severity}); err != nil {
				entry.WithError(err).Warn("failed to push admin notification")
			}
		}
		if s.mailer != nil && a.Email != "" {
			subject := fmt.Sprintf("[%s] %s", severity, title)
			body := fmt.Sprintf("<p><strong>%s</strong></p><p>%s</p>", html.EscapeString(title), html.EscapeString(message))
			if err := s.mailer.Send(ctx, a.Email, a.Name, subject, message, body); err != nil {
				entry.WithError(err).Warn("failed to email admin notification")
			}
		}
	}
}

func (s *NotificationService) List(ctx context.Context, recipientType string, recipientID uint, limit, offset int) ([]models.Notification, error) {
	return s.store.Notifications().ListByRecipient(ctx, recipientType, recipientID, limit, offset)
}

func (s *NotificationService) MarkRead(ctx context.Context, id uint, recipientType string, recipientID uint) error {
	return s.store.Notifications().MarkRead(ctx, id, recipientType, recipientID)
}

// UpdatePartnerFCMToken stores the device token used for pushes.
func (s *NotificationService) UpdatePartnerFCMToken(ctx context.Context, partnerID uint, token string) error {
	return s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := tx.Partners().GetByID(ctx, partnerID)
		if err != nil {
			return notFound(err, ErrPartnerNotFound)
		}
		p.FCMToken = token
		return tx.Partners().Update(ctx, p)
	})
}
