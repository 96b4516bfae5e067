package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"nexo/internal/domain"
	"nexo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePush struct {
	mu     sync.Mutex
	tokens []string
	err    error
}

func (p *fakePush) SendToUser(_ context.Context, token, _, _, _ string, _ map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens = append(p.tokens, token)
	return p.err
}

type fakeMailer struct {
	to  []string
	err error
}

func (m *fakeMailer) Send(_ context.Context, to, _, _, _, _ string) error {
	m.to = append(m.to, to)
	return m.err
}

func TestNotifyPartner_StoresPushesAndBroadcasts(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "930001")
	push := &fakePush{}
	svc := NewNotificationService(f.store, push, nil, f.realtime, f.log)

	require.NoError(t, svc.UpdatePartnerFCMToken(f.ctx, p.ID, "device-token"))
	svc.NotifyPartner(f.ctx, p.ID, "Low wallet balance", "Top up", domain.SeverityWarning)

	list, err := svc.List(f.ctx, domain.RecipientPartner, p.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Low wallet balance", list[0].Title)
	assert.Equal(t, domain.SeverityWarning, list[0].Severity)
	assert.Equal(t, []string{"device-token"}, push.tokens)
	assert.Equal(t, 1, f.realtime.count(p.ID))

	require.NoError(t, svc.MarkRead(f.ctx, list[0].ID, domain.RecipientPartner, p.ID))
	list, err = svc.List(f.ctx, domain.RecipientPartner, p.ID, 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, list[0].ReadAt)
}

func TestNotifyPartner_SwallowsFailures(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "930002")
	push := &fakePush{err: errors.New("fcm down")}
	svc := NewNotificationService(f.store, push, nil, nil, f.log)
	require.NoError(t, svc.UpdatePartnerFCMToken(f.ctx, p.ID, "device-token"))

	f.store.FailNext("notifications.Create", errors.New("db down"))
	assert.NotPanics(t, func() {
		svc.NotifyPartner(f.ctx, p.ID, "t", "m", domain.SeverityInfo)
	})
	assert.Len(t, push.tokens, 1, "push is still attempted")

	// unknown partners are logged, not returned
	svc.NotifyPartner(f.ctx, 999, "t", "m", domain.SeverityInfo)
}

func TestNotifyAllAdmins_EmailsActiveAdmins(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Admins().Create(f.ctx, &models.Admin{Email: "ops@nexo.local", Name: "Ops", IsActive: true, FCMToken: "admin-token"}))
	require.NoError(t, f.store.Admins().Create(f.ctx, &models.Admin{Email: "gone@nexo.local", IsActive: false}))
	push := &fakePush{}
	mailer := &fakeMailer{err: errors.New("sendgrid 500")}
	svc := NewNotificationService(f.store, push, mailer, nil, f.log)

	svc.NotifyAllAdmins(f.ctx, "Partner balance low", "Partner #1 is paused", domain.SeverityWarning)

	assert.Equal(t, []string{"ops@nexo.local"}, mailer.to)
	assert.Equal(t, []string{"admin-token"}, push.tokens)
	ops, err := f.store.Admins().GetByEmail(f.ctx, "ops@nexo.local")
	require.NoError(t, err)
	list, err := svc.List(f.ctx, domain.RecipientAdmin, ops.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStringifyData(t *testing.T) {
	out := stringifyData("notification", map[string]interface{}{
		"id":     uint(7),
		"amount": int64(5000),
		"name":   "x",
		"nested": map[string]int{"a": 1},
	})
	assert.Equal(t, map[string]string{
		"type":   "notification",
		"id":     "7",
		"amount": "5000",
		"name":   "x",
		"nested": `{"a":1}`,
	}, out)
}
