package repository

import (
	"context"
	"errors"
	"time"

	"nexo/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("record modified concurrently")
	ErrDuplicate = errors.New("duplicate key")
)

// Store groups the repositories and runs units of work atomically.
// Repositories obtained from the tx Store passed to Transaction read rows
// with a write lock, so a read-modify-write inside fn is serialized against
// other transactions touching the same rows.
type Store interface {
	Partners() PartnerRepository
	Wallets() WalletRepository
	Plans() PlanRepository
	PlanHistory() PlanHistoryRepository
	Bookings() BookingRepository
	Payments() PaymentTransactionRepository
	TopUps() TopUpRepository
	Notifications() NotificationRepository
	Admins() AdminRepository
	Settings() SettingRepository
	Outbox() OutboxRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type PartnerRepository interface {
	Create(ctx context.Context, p *models.Partner) error
	GetByID(ctx context.Context, id uint) (*models.Partner, error)
	// Update writes every mutable column when the stored version matches p.Version
	// and bumps it. A stale version yields ErrConflict.
	Update(ctx context.Context, p *models.Partner) error
	List(ctx context.Context, search string, page, limit int) ([]models.Partner, int64, error)
	// ListExpired returns subscribed partners whose period ended before now.
	ListExpired(ctx context.Context, now time.Time) ([]models.Partner, error)
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Partner, error)
}

type WalletRepository interface {
	GetByPartnerID(ctx context.Context, partnerID uint) (*models.Wallet, error)
	// GetOrCreate returns the partner's wallet, creating it with a zero balance.
	GetOrCreate(ctx context.Context, partnerID uint, currency string) (*models.Wallet, error)
	// Update is version-checked like PartnerRepository.Update.
	Update(ctx context.Context, w *models.Wallet) error
	AppendTransaction(ctx context.Context, t *models.WalletTransaction) error
	TransactionIDExists(ctx context.Context, transactionID string) (bool, error)
	ListTransactions(ctx context.Context, partnerID uint, limit, offset int) ([]models.WalletTransaction, int64, error)
}

type PlanRepository interface {
	Create(ctx context.Context, p *models.Plan) error
	Update(ctx context.Context, p *models.Plan) error
	GetByID(ctx context.Context, id uint) (*models.Plan, error)
	GetByName(ctx context.Context, name string) (*models.Plan, error)
	GetDefault(ctx context.Context) (*models.Plan, error)
	List(ctx context.Context, activeOnly bool) ([]models.Plan, error)
	// ClearDefaultExcept unsets is_default on every plan but id.
	ClearDefaultExcept(ctx context.Context, id uint) error
}

type PlanHistoryRepository interface {
	Append(ctx context.Context, e *models.PlanHistoryEntry) error
	Update(ctx context.Context, e *models.PlanHistoryEntry) error
	GetByID(ctx context.Context, id uint) (*models.PlanHistoryEntry, error)
	// Latest returns the newest SUBSCRIBED or RENEWED entry for the partner.
	Latest(ctx context.Context, partnerID uint) (*models.PlanHistoryEntry, error)
	// ListByPartner returns entries newest first.
	ListByPartner(ctx context.Context, partnerID uint) ([]models.PlanHistoryEntry, error)
	// TrimToRecent deletes all but the keep newest entries of the partner.
	TrimToRecent(ctx context.Context, partnerID uint, keep int) error
}

type BookingRepository interface {
	Create(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id uint) (*models.Booking, error)
	Update(ctx context.Context, b *models.Booking) error
	List(ctx context.Context, status string, page, limit int) ([]models.Booking, int64, error)
	ListByPartner(ctx context.Context, partnerID uint, limit, offset int) ([]models.Booking, error)
}

type PaymentTransactionRepository interface {
	Create(ctx context.Context, p *models.PaymentTransaction) error
	// List filters by partnerID and feeType when they are non-zero.
	List(ctx context.Context, partnerID uint, feeType string, page, limit int) ([]models.PaymentTransaction, int64, error)
}

type TopUpRepository interface {
	Create(ctx context.Context, t *models.TopUp) error
	GetByID(ctx context.Context, id uint) (*models.TopUp, error)
	GetByProviderRef(ctx context.Context, ref string) (*models.TopUp, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.TopUp, error)
	Update(ctx context.Context, t *models.TopUp) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByRecipient(ctx context.Context, recipientType string, recipientID uint, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uint, recipientType string, recipientID uint) error
}

type AdminRepository interface {
	Create(ctx context.Context, a *models.Admin) error
	GetByID(ctx context.Context, id uint) (*models.Admin, error)
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	ListActive(ctx context.Context) ([]models.Admin, error)
}

type SettingRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, updatedBy *uint) error
	GetAll(ctx context.Context) ([]models.SystemSetting, error)
	// SeedDefaults inserts settings whose key is not stored yet.
	SeedDefaults(ctx context.Context, defaults map[string]string) error
}

type OutboxRepository interface {
	Create(ctx context.Context, e *models.OutboxEvent) error
	ListPending(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uint, at time.Time) error
	// RecordFailure bumps the attempt counter and moves the event to FAILED
	// once maxAttempts is reached.
	RecordFailure(ctx context.Context, id uint, reason string, maxAttempts int) error
}
