package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nexo/config"
	"nexo/internal/domain"
	"nexo/internal/models"
	"nexo/internal/repository"
	"nexo/pkg/keylock"
	"nexo/pkg/payment"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TopUpService creates gateway orders and credits the wallet when the
// provider reports them paid.
type TopUpService struct {
	store    repository.Store
	ledger   *LedgerService
	provider payment.Provider
	locks    *keylock.KeyedMutex[uint]
	notify   Notifier
	cfg      *config.PaymentConfig
	log      *logrus.Logger
}

func NewTopUpService(store repository.Store, ledger *LedgerService, provider payment.Provider, locks *keylock.KeyedMutex[uint], notify Notifier, cfg *config.PaymentConfig, log *logrus.Logger) *TopUpService {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &TopUpService{store: store, ledger: ledger, provider: provider, locks: locks, notify: notify, cfg: cfg, log: log}
}

// Create opens a PENDING top-up order. Repeating a call with the same
// idempotency key returns the original order.
func (s *TopUpService) Create(ctx context.Context, partnerID uint, amountCents int64, idempotencyKey string) (*models.TopUp, error) {
	if amountCents <= 0 || amountCents < s.cfg.MinTopUpCents {
		return nil, ErrInvalidAmount
	}
	if _, err := s.store.Partners().GetByID(ctx, partnerID); err != nil {
		return nil, notFound(err, ErrPartnerNotFound)
	}
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	} else {
		idempotencyKey = fmt.Sprintf("%d:%s", partnerID, idempotencyKey)
		existing, err := s.store.TopUps().GetByIdempotencyKey(ctx, idempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	resp, err := s.provider.InitiatePayment(ctx, payment.PaymentRequest{
		PartnerID:      partnerID,
		AmountCents:    amountCents,
		Currency:       s.ledger.currency,
		IdempotencyKey: idempotencyKey,
		Description:    "Wallet top-up",
		Notes:          map[string]string{"partner_id": fmt.Sprint(partnerID)},
		ExpiresIn:      s.cfg.PaymentExpiry,
	})
	if err != nil {
		s.log.WithError(err).WithField("partner_id", partnerID).Error("payment provider rejected top-up")
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}
	t := &models.TopUp{
		PartnerID:      partnerID,
		AmountCents:    amountCents,
		Currency:       s.ledger.currency,
		Provider:       s.provider.Name(),
		ProviderRef:    resp.Reference,
		Status:         domain.PaymentStatusPending,
		IdempotencyKey: idempotencyKey,
		CheckoutURL:    resp.CheckoutURL,
	}
	if !resp.ExpiresAt.IsZero() {
		t.ExpiresAt = &resp.ExpiresAt
	}
	if err := s.store.TopUps().Create(ctx, t); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.store.TopUps().GetByIdempotencyKey(ctx, idempotencyKey)
		}
		return nil, err
	}
	return t, nil
}

func (s *TopUpService) Get(ctx context.Context, partnerID, id uint) (*models.TopUp, error) {
	t, err := s.store.TopUps().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTopUpNotFound)
	}
	if t.PartnerID != partnerID {
		return nil, ErrTopUpNotFound
	}
	return t, nil
}

// Complete settles the order identified by reference. A COMPLETED status is
// only applied once the provider confirms the payment. Orders that already
// left PENDING are returned unchanged with applied=false.
func (s *TopUpService) Complete(ctx context.Context, reference, status string) (*models.TopUp, bool, error) {
	found, err := s.store.TopUps().GetByProviderRef(ctx, reference)
	if err != nil {
		return nil, false, notFound(err, ErrTopUpNotFound)
	}
	status = normalizeProviderStatus(status)
	if status == "" {
		return nil, false, ErrInvalidRequest
	}
	if status == domain.PaymentStatusCompleted && found.Status == domain.PaymentStatusPending {
		ok, err := s.provider.VerifyPayment(ctx, found.ProviderRef)
		if err != nil {
			s.log.WithError(err).WithField("provider_ref", found.ProviderRef).Error("payment verification failed")
			return nil, false, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
		}
		if !ok {
			return nil, false, ErrPaymentUnverified
		}
	}

	unlock := s.locks.Lock(found.PartnerID)
	defer unlock()

	var (
		topUp   *models.TopUp
		applied bool
		res     *PostResult
	)
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		t, err := tx.TopUps().GetByProviderRef(ctx, reference)
		if err != nil {
			return notFound(err, ErrTopUpNotFound)
		}
		topUp = t
		if t.Status != domain.PaymentStatusPending {
			return nil
		}
		now := time.Now()
		if status == domain.PaymentStatusCompleted {
			res, err = s.ledger.post(ctx, tx, t.PartnerID, domain.TxTypeCredit, t.AmountCents,
				"Wallet top-up", "topup:"+t.ProviderRef, nil)
			if err != nil {
				return err
			}
			t.TransactionID = res.Transaction.TransactionID
			t.CompletedAt = &now
		}
		t.Status = status
		if err := tx.TopUps().Update(ctx, t); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !applied {
		return topUp, false, nil
	}

	entry := s.log.WithFields(logrus.Fields{
		"partner_id":   topUp.PartnerID,
		"provider_ref": topUp.ProviderRef,
		"status":       topUp.Status,
	})
	if topUp.Status != domain.PaymentStatusCompleted {
		entry.Info("top-up failed")
		s.notify.NotifyPartner(ctx, topUp.PartnerID, "Top-up failed",
			fmt.Sprintf("Your top-up of %s did not go through.", formatCents(topUp.AmountCents)), domain.SeverityWarning)
		return topUp, true, nil
	}
	entry.Info("top-up credited")
	recordPayment(ctx, s.store, s.log, &models.PaymentTransaction{
		PartnerID:   topUp.PartnerID,
		AmountCents: topUp.AmountCents,
		Status:      domain.PaymentStatusCompleted,
		FeeType:     domain.FeeTypeTopUp,
		Description: "Wallet top-up via " + topUp.Provider,
		Metadata: map[string]interface{}{
			"provider_ref":   topUp.ProviderRef,
			"transaction_id": topUp.TransactionID,
		},
	})
	s.ledger.broadcastWallet(topUp.PartnerID, res.Wallet, res.LeadAcceptancePaused)
	msg := fmt.Sprintf("%s was added to your wallet. New balance: %s.",
		formatCents(topUp.AmountCents), formatCents(res.Wallet.BalanceCents))
	if !res.LeadAcceptancePaused {
		msg += " You can accept leads again."
	}
	s.notify.NotifyPartner(ctx, topUp.PartnerID, "Wallet topped up", msg, domain.SeverityInfo)
	return topUp, true, nil
}

func normalizeProviderStatus(status string) string {
	switch strings.ToLower(status) {
	case "completed", "paid", "captured", "success":
		return domain.PaymentStatusCompleted
	case "failed", "cancelled", "expired":
		return domain.PaymentStatusFailed
	}
	return ""
}
