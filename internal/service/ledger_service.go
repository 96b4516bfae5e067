package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nexo/internal/domain"
	"nexo/internal/models"
	"nexo/internal/repository"
	"nexo/pkg/keylock"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// maxTransactionIDAttempts bounds the search for an unused transaction id.
const maxTransactionIDAttempts = 10

// NewTransactionID returns "TXN" followed by 16 upper-case hex characters.
func NewTransactionID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return "TXN" + strings.ToUpper(strings.ReplaceAll(u.String(), "-", "")[:16]), nil
}

// LedgerService owns wallet balances and their append-only transaction log.
type LedgerService struct {
	store    repository.Store
	plans    *PlanService
	locks    *keylock.KeyedMutex[uint]
	realtime Broadcaster
	log      *logrus.Logger
	currency string

	// NewTxnID generates candidate transaction ids.
	NewTxnID func() (string, error)
}

func NewLedgerService(store repository.Store, plans *PlanService, locks *keylock.KeyedMutex[uint], realtime Broadcaster, log *logrus.Logger, currency string) *LedgerService {
	if realtime == nil {
		realtime = nopBroadcaster{}
	}
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &LedgerService{
		store:    store,
		plans:    plans,
		locks:    locks,
		realtime: realtime,
		log:      log,
		currency: currency,
		NewTxnID: NewTransactionID,
	}
}

// PostResult is the outcome of a single credit or debit.
type PostResult struct {
	Transaction          *models.WalletTransaction
	Wallet               *models.Wallet
	LeadAcceptancePaused bool
}

// Credit adds amountCents to the partner's wallet, creating it if needed.
func (s *LedgerService) Credit(ctx context.Context, partnerID uint, amountCents int64, description, reference string) (*models.WalletTransaction, error) {
	return s.postLocked(ctx, partnerID, domain.TxTypeCredit, amountCents, description, reference)
}

// Debit subtracts amountCents. The balance may go negative.
func (s *LedgerService) Debit(ctx context.Context, partnerID uint, amountCents int64, description, reference string) (*models.WalletTransaction, error) {
	return s.postLocked(ctx, partnerID, domain.TxTypeDebit, amountCents, description, reference)
}

func (s *LedgerService) postLocked(ctx context.Context, partnerID uint, txType string, amountCents int64, description, reference string) (*models.WalletTransaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	unlock := s.locks.Lock(partnerID)
	defer unlock()

	var res *PostResult
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		res, err = s.post(ctx, tx, partnerID, txType, amountCents, description, reference, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.broadcastWallet(partnerID, res.Wallet, res.LeadAcceptancePaused)
	return res.Transaction, nil
}

// post applies an entry within tx and re-evaluates the pause flag against
// the partner's resolved minimum balance.
func (s *LedgerService) post(ctx context.Context, tx repository.Store, partnerID uint, txType string, amountCents int64, description, reference string, bookingID *uint) (*PostResult, error) {
	partner, err := tx.Partners().GetByID(ctx, partnerID)
	if err != nil {
		return nil, notFound(err, ErrPartnerNotFound)
	}
	wallet, err := tx.Wallets().GetOrCreate(ctx, partnerID, s.currency)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	if txType == domain.TxTypeDebit && wallet.Status == domain.WalletStatusBlocked {
		return nil, ErrWalletBlocked
	}
	t, err := s.applyEntry(ctx, tx, wallet, txType, amountCents, description, reference, bookingID)
	if err != nil {
		return nil, err
	}
	terms, err := s.plans.resolveTerms(ctx, tx, partner)
	if err != nil {
		return nil, err
	}
	paused := wallet.BalanceCents < terms.MinWalletBalanceCents
	if paused != partner.LeadAcceptancePaused {
		partner.LeadAcceptancePaused = paused
		if err := tx.Partners().Update(ctx, partner); err != nil {
			return nil, fmt.Errorf("update partner: %w", err)
		}
		if err := emit(ctx, tx, domain.EventPaused, partnerID, map[string]interface{}{
			"lead_acceptance_paused": paused,
			"balance_cents":          wallet.BalanceCents,
		}); err != nil {
			return nil, err
		}
	}
	return &PostResult{Transaction: t, Wallet: wallet, LeadAcceptancePaused: paused}, nil
}

// applyEntry moves the balance of wallet and appends the matching
// transaction. The wallet must have been read within tx.
func (s *LedgerService) applyEntry(ctx context.Context, tx repository.Store, wallet *models.Wallet, txType string, amountCents int64, description, reference string, bookingID *uint) (*models.WalletTransaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if txType == domain.TxTypeDebit {
		wallet.BalanceCents -= amountCents
	} else {
		wallet.BalanceCents += amountCents
	}
	if err := tx.Wallets().Update(ctx, wallet); err != nil {
		return nil, fmt.Errorf("update wallet: %w", err)
	}
	t := &models.WalletTransaction{
		WalletID:          wallet.ID,
		PartnerID:         wallet.PartnerID,
		Type:              txType,
		AmountCents:       amountCents,
		BalanceAfterCents: wallet.BalanceCents,
		Description:       description,
		Reference:         reference,
		BookingID:         bookingID,
	}
	if err := s.appendWithUniqueID(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := emit(ctx, tx, domain.EventWalletUpdated, wallet.PartnerID, map[string]interface{}{
		"transaction_id":      t.TransactionID,
		"type":                txType,
		"amount_cents":        amountCents,
		"balance_after_cents": wallet.BalanceCents,
	}); err != nil {
		return nil, err
	}
	return t, nil
}

// appendWithUniqueID draws ids until one is unused and the insert succeeds.
// The unique index settles races between concurrent writers.
func (s *LedgerService) appendWithUniqueID(ctx context.Context, tx repository.Store, t *models.WalletTransaction) error {
	for attempt := 0; attempt < maxTransactionIDAttempts; attempt++ {
		id, err := s.NewTxnID()
		if err != nil {
			return fmt.Errorf("generate transaction id: %w", err)
		}
		exists, err := tx.Wallets().TransactionIDExists(ctx, id)
		if err != nil {
			return fmt.Errorf("check transaction id: %w", err)
		}
		if exists {
			continue
		}
		t.TransactionID = id
		err = tx.Wallets().AppendTransaction(ctx, t)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return fmt.Errorf("append transaction: %w", err)
		}
		return nil
	}
	return ErrTransactionIDExhausted
}

// GetBalance returns the balance in cents; a missing wallet is created empty.
func (s *LedgerService) GetBalance(ctx context.Context, partnerID uint) (int64, error) {
	w, err := s.GetWallet(ctx, partnerID)
	if err != nil {
		return 0, err
	}
	return w.BalanceCents, nil
}

func (s *LedgerService) GetWallet(ctx context.Context, partnerID uint) (*models.Wallet, error) {
	if _, err := s.store.Partners().GetByID(ctx, partnerID); err != nil {
		return nil, notFound(err, ErrPartnerNotFound)
	}
	return s.store.Wallets().GetOrCreate(ctx, partnerID, s.currency)
}

func (s *LedgerService) ListTransactions(ctx context.Context, partnerID uint, limit, offset int) ([]models.WalletTransaction, int64, error) {
	return s.store.Wallets().ListTransactions(ctx, partnerID, limit, offset)
}

// SetWalletStatus blocks or unblocks a wallet. Blocked wallets refuse debits
// and lead acceptance.
func (s *LedgerService) SetWalletStatus(ctx context.Context, partnerID uint, status string) (*models.Wallet, error) {
	if status != domain.WalletStatusActive && status != domain.WalletStatusBlocked {
		return nil, ErrInvalidRequest
	}
	unlock := s.locks.Lock(partnerID)
	defer unlock()
	var wallet *models.Wallet
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Partners().GetByID(ctx, partnerID); err != nil {
			return notFound(err, ErrPartnerNotFound)
		}
		w, err := tx.Wallets().GetOrCreate(ctx, partnerID, s.currency)
		if err != nil {
			return err
		}
		if w.Status == status {
			wallet = w
			return nil
		}
		w.Status = status
		if err := tx.Wallets().Update(ctx, w); err != nil {
			return err
		}
		wallet = w
		return emit(ctx, tx, domain.EventWalletUpdated, partnerID, map[string]interface{}{"status": status})
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// WalletSummary is the partner-facing wallet view.
type WalletSummary struct {
	Wallet               *models.Wallet
	Transactions         []models.WalletTransaction
	TotalTransactions    int64
	Terms                LeadTerms
	LeadAcceptancePaused bool
	Subscription         *Subscription
}

func (s *LedgerService) Summary(ctx context.Context, partnerID uint, limit int) (*WalletSummary, error) {
	partner, err := s.store.Partners().GetByID(ctx, partnerID)
	if err != nil {
		return nil, notFound(err, ErrPartnerNotFound)
	}
	wallet, err := s.store.Wallets().GetOrCreate(ctx, partnerID, s.currency)
	if err != nil {
		return nil, err
	}
	txns, total, err := s.store.Wallets().ListTransactions(ctx, partnerID, limit, 0)
	if err != nil {
		return nil, err
	}
	terms, err := s.plans.resolveTerms(ctx, s.store, partner)
	if err != nil {
		return nil, err
	}
	sub, err := s.plans.subscriptionOf(ctx, s.store, partner)
	if err != nil {
		return nil, err
	}
	return &WalletSummary{
		Wallet:               wallet,
		Transactions:         txns,
		TotalTransactions:    total,
		Terms:                terms,
		LeadAcceptancePaused: partner.LeadAcceptancePaused,
		Subscription:         sub,
	}, nil
}

func (s *LedgerService) broadcastWallet(partnerID uint, w *models.Wallet, paused bool) {
	s.realtime.BroadcastToUser(partnerID, map[string]interface{}{
		"type":                   domain.EventWalletUpdated,
		"balance_cents":          w.BalanceCents,
		"lead_acceptance_paused": paused,
		"at":                     time.Now().UTC(),
	})
}
