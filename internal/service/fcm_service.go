package service

import (
	"context"
	"encoding/json"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// PushSender delivers a push notification to a device token.
type PushSender interface {
	SendToUser(ctx context.Context, fcmToken, notifType, title, body string, data map[string]interface{}) error
}

// FCMService sends push notifications via Firebase Cloud Messaging.
type FCMService struct {
	client *messaging.Client
	log    *logrus.Logger
}

// NewFCMService creates an FCM service. Returns nil if Firebase is not configured.
func NewFCMService(serviceAccountPath string, log *logrus.Logger) *FCMService {
	if serviceAccountPath == "" {
		return nil
	}
	ctx := context.Background()
	opt := option.WithCredentialsFile(serviceAccountPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		log.WithError(err).Error("failed to init firebase app")
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		log.WithError(err).Error("failed to get firebase messaging client")
		return nil
	}
	return &FCMService{client: client, log: log}
}

// Send sends a push notification to the given FCM token.
func (s *FCMService) Send(ctx context.Context, token string, title, body string, data map[string]string) error {
	if s == nil || token == "" {
		return nil
	}
	msg := &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:  data,
		Token: token,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:     "default",
				ChannelID: "wallet_alerts",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
	if _, err := s.client.Send(ctx, msg); err != nil {
		s.log.WithError(err).Warn("fcm send failed")
		return err
	}
	return nil
}

// SendToUser converts data values to strings, as FCM requires, and sends.
func (s *FCMService) SendToUser(ctx context.Context, fcmToken, notifType, title, body string, data map[string]interface{}) error {
	if s == nil || fcmToken == "" {
		return nil
	}
	return s.Send(ctx, fcmToken, title, body, stringifyData(notifType, data))
}

func stringifyData(notifType string, data map[string]interface{}) map[string]string {
	out := map[string]string{"type": notifType}
	for k, v := range data {
		switch val := v.(type) {
		case string:
			out[k] = val
		case uint:
			out[k] = fmt.Sprintf("%d", val)
		case int:
			out[k] = fmt.Sprintf("%d", val)
		case int64:
			out[k] = fmt.Sprintf("%d", val)
		case float64:
			out[k] = fmt.Sprintf("%.0f", val)
		default:
			b, _ := json.Marshal(v)
			out[k] = string(b)
		}
	}
	return out
}
