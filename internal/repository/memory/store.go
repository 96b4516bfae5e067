// Package memory is an in-process repository.Store used by tests and the
// memory database driver. Transactions are serialized and roll back by
// restoring a snapshot taken when they began. Writes made outside a
// transaction wait for any open transaction to finish, so a rollback never
// discards them.
package memory

import (
	"context"
	"sync"

	"nexo/internal/models"
	"nexo/internal/repository"
)

type tables struct {
	partners      map[uint]models.Partner
	wallets       map[uint]models.Wallet
	walletTxns    []models.WalletTransaction
	plans         map[uint]models.Plan
	history       map[uint]models.PlanHistoryEntry
	bookings      map[uint]models.Booking
	payments      []models.PaymentTransaction
	topUps        map[uint]models.TopUp
	notifications map[uint]models.Notification
	admins        map[uint]models.Admin
	settings      map[string]models.SystemSetting
	outbox        map[uint]models.OutboxEvent
	seq           uint
}

func newTables() *tables {
	return &tables{
		partners:      map[uint]models.Partner{},
		wallets:       map[uint]models.Wallet{},
		plans:         map[uint]models.Plan{},
		history:       map[uint]models.PlanHistoryEntry{},
		bookings:      map[uint]models.Booking{},
		topUps:        map[uint]models.TopUp{},
		notifications: map[uint]models.Notification{},
		admins:        map[uint]models.Admin{},
		settings:      map[string]models.SystemSetting{},
		outbox:        map[uint]models.OutboxEvent{},
	}
}

func (t *tables) clone() *tables {
	c := &tables{
		partners:      make(map[uint]models.Partner, len(t.partners)),
		wallets:       make(map[uint]models.Wallet, len(t.wallets)),
		walletTxns:    append([]models.WalletTransaction(nil), t.walletTxns...),
		plans:         make(map[uint]models.Plan, len(t.plans)),
		history:       make(map[uint]models.PlanHistoryEntry, len(t.history)),
		bookings:      make(map[uint]models.Booking, len(t.bookings)),
		payments:      append([]models.PaymentTransaction(nil), t.payments...),
		topUps:        make(map[uint]models.TopUp, len(t.topUps)),
		notifications: make(map[uint]models.Notification, len(t.notifications)),
		admins:        make(map[uint]models.Admin, len(t.admins)),
		settings:      make(map[string]models.SystemSetting, len(t.settings)),
		outbox:        make(map[uint]models.OutboxEvent, len(t.outbox)),
		seq:           t.seq,
	}
	for k, v := range t.partners {
		c.partners[k] = v
	}
	for k, v := range t.wallets {
		c.wallets[k] = v
	}
	for k, v := range t.plans {
		c.plans[k] = v
	}
	for k, v := range t.history {
		c.history[k] = v
	}
	for k, v := range t.bookings {
		c.bookings[k] = v
	}
	for k, v := range t.topUps {
		c.topUps[k] = v
	}
	for k, v := range t.notifications {
		c.notifications[k] = v
	}
	for k, v := range t.admins {
		c.admins[k] = v
	}
	for k, v := range t.settings {
		c.settings[k] = v
	}
	for k, v := range t.outbox {
		c.outbox[k] = v
	}
	return c
}

func (t *tables) nextID() uint {
	t.seq++
	return t.seq
}

type core struct {
	mu   sync.Mutex // guards data
	txMu sync.Mutex // held for the life of a transaction
	data *tables

	faultMu sync.Mutex
	faults  map[string]error
}

// Store is safe for concurrent use. The value handed to a transaction
// callback shares the same tables with inTx set.
type Store struct {
	*core
	inTx bool
}

func NewStore() *Store {
	return &Store{core: &core{data: newTables(), faults: map[string]error{}}}
}

// lockWrite takes the locks a mutation needs and returns the release func.
// Outside a transaction that includes txMu.
func (s *Store) lockWrite() func() {
	if !s.inTx {
		s.txMu.Lock()
	}
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		if !s.inTx {
			s.txMu.Unlock()
		}
	}
}

// FailNext makes the next call of op (e.g. "bookings.Update") return err.
func (s *Store) FailNext(op string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if err, ok := s.faults[op]; ok {
		delete(s.faults, op)
		return err
	}
	return nil
}

func (s *Store) Partners() repository.PartnerRepository {
	return &partnerRepo{s}
}

func (s *Store) Wallets() repository.WalletRepository {
	return &walletRepo{s}
}

func (s *Store) Plans() repository.PlanRepository {
	return &planRepo{s}
}

func (s *Store) PlanHistory() repository.PlanHistoryRepository {
	return &historyRepo{s}
}

func (s *Store) Bookings() repository.BookingRepository {
	return &bookingRepo{s}
}

func (s *Store) Payments() repository.PaymentTransactionRepository {
	return &paymentRepo{s}
}

func (s *Store) TopUps() repository.TopUpRepository {
	return &topUpRepo{s}
}

func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationRepo{s}
}

func (s *Store) Admins() repository.AdminRepository {
	return &adminRepo{s}
}

func (s *Store) Settings() repository.SettingRepository {
	return &settingRepo{s}
}

func (s *Store) Outbox() repository.OutboxRepository {
	return &outboxRepo{s}
}

// Transaction runs fn with every other writer held off. Nested calls run
// inline with their own rollback snapshot, like savepoints.
func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return s.runTx(ctx, fn)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.runTx(ctx, fn)
}

func (s *Store) runTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()
	if err := fn(&Store{core: s.core, inTx: true}); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func page(total, page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	return window(total, start, limit)
}

func window(total, offset, limit int) (int, int) {
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return offset, end
}
