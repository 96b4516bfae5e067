// Package mysql implements the repository interfaces on gorm.
package mysql

import (
	"context"
	"errors"

	"nexo/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the gorm-backed repository.Store. A Store handed out by Transaction
// reads rows with SELECT ... FOR UPDATE.
type Store struct {
	db   *gorm.DB
	lock bool
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Partners() repository.PartnerRepository {
	return &PartnerRepository{db: s.db, lock: s.lock}
}

func (s *Store) Wallets() repository.WalletRepository {
	return &WalletRepository{db: s.db, lock: s.lock}
}

func (s *Store) Plans() repository.PlanRepository {
	return &PlanRepository{db: s.db}
}

func (s *Store) PlanHistory() repository.PlanHistoryRepository {
	return &PlanHistoryRepository{db: s.db, lock: s.lock}
}

func (s *Store) Bookings() repository.BookingRepository {
	return &BookingRepository{db: s.db, lock: s.lock}
}

func (s *Store) Payments() repository.PaymentTransactionRepository {
	return &PaymentTransactionRepository{db: s.db}
}

func (s *Store) TopUps() repository.TopUpRepository {
	return &TopUpRepository{db: s.db, lock: s.lock}
}

func (s *Store) Notifications() repository.NotificationRepository {
	return &NotificationRepository{db: s.db}
}

func (s *Store) Admins() repository.AdminRepository {
	return &AdminRepository{db: s.db}
}

func (s *Store) Settings() repository.SettingRepository {
	return &SettingRepository{db: s.db}
}

func (s *Store) Outbox() repository.OutboxRepository {
	return &OutboxRepository{db: s.db}
}

// Transaction runs fn in a database transaction. Nested calls become savepoints.
func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, lock: true})
	})
}

func forUpdate(db *gorm.DB, lock bool) *gorm.DB {
	if lock {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// translate maps gorm errors onto the repository sentinels. It relies on
// gorm.Config.TranslateError for dialect-specific duplicate-key errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	}
	return err
}

func offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
