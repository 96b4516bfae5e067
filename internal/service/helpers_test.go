package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"nexo/config"
	"nexo/internal/models"
	"nexo/internal/repository/memory"
	"nexo/pkg/keylock"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type sentNotification struct {
	PartnerID uint
	Title     string
	Message   string
	Severity  string
}

type recordingNotifier struct {
	mu      sync.Mutex
	partner []sentNotification
	admin   []sentNotification
}

func (n *recordingNotifier) NotifyPartner(_ context.Context, partnerID uint, title, message, severity string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.partner = append(n.partner, sentNotification{partnerID, title, message, severity})
}

func (n *recordingNotifier) NotifyAllAdmins(_ context.Context, title, message, severity string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.admin = append(n.admin, sentNotification{0, title, message, severity})
}

func (n *recordingNotifier) partnerTitles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.partner {
		out = append(out, s.Title)
	}
	return out
}

func (n *recordingNotifier) adminCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.admin)
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent map[uint][]interface{}
}

func (b *recordingBroadcaster) BroadcastToUser(userID uint, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sent == nil {
		b.sent = map[uint][]interface{}{}
	}
	b.sent[userID] = append(b.sent[userID], payload)
}

func (b *recordingBroadcaster) count(userID uint) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent[userID])
}

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	cfg      *config.Config
	log      *logrus.Logger
	locks    *keylock.KeyedMutex[uint]
	notifier *recordingNotifier
	realtime *recordingBroadcaster
	plans    *PlanService
	ledger   *LedgerService
	engine   *LeadEngine
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	f := &fixture{
		ctx:      context.Background(),
		store:    memory.NewStore(),
		cfg:      config.Default(),
		log:      log,
		locks:    keylock.New[uint](),
		notifier: &recordingNotifier{},
		realtime: &recordingBroadcaster{},
		now:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.plans = NewPlanService(f.store, f.locks, f.notifier, &f.cfg.Leads, log)
	f.plans.Now = clock
	f.ledger = NewLedgerService(f.store, f.plans, f.locks, f.realtime, log, f.cfg.Leads.Currency)
	f.engine = NewLeadEngine(f.store, f.ledger, f.plans, f.locks, f.notifier, f.realtime, log)
	f.engine.Now = clock
	return f
}

func (f *fixture) partner(t *testing.T, phone string) *models.Partner {
	t.Helper()
	p := &models.Partner{Name: "Partner " + phone, Phone: phone, City: "Pune"}
	require.NoError(t, f.store.Partners().Create(f.ctx, p))
	return p
}

func (f *fixture) reload(t *testing.T, id uint) *models.Partner {
	t.Helper()
	p, err := f.store.Partners().GetByID(f.ctx, id)
	require.NoError(t, err)
	return p
}

func (f *fixture) plan(t *testing.T, name string, leads int, fee, min int64) *models.Plan {
	t.Helper()
	p, err := f.plans.CreatePlan(f.ctx, PlanInput{
		Name:                  name,
		PriceCents:            99900,
		LeadsGuaranteed:       leads,
		LeadFeeCents:          fee,
		MinWalletBalanceCents: min,
		ValidityMonths:        1,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) booking(t *testing.T) *models.Booking {
	t.Helper()
	b, err := NewBookingService(f.store).Create(f.ctx, BookingInput{ServiceName: "AC repair", City: "Pune", AmountCents: 150000})
	require.NoError(t, err)
	return b
}

func (f *fixture) balance(t *testing.T, partnerID uint) int64 {
	t.Helper()
	b, err := f.ledger.GetBalance(f.ctx, partnerID)
	require.NoError(t, err)
	return b
}
