package memory

import (
	"context"
	"sort"
	"time"

	"nexo/internal/domain"
	"nexo/internal/models"
	"nexo/internal/repository"
)

type walletRepo struct{ s *Store }

func (r *walletRepo) GetByPartnerID(ctx context.Context, partnerID uint) (*models.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if w, ok := r.byPartner(partnerID); ok {
		return &w, nil
	}
	return nil, repository.ErrNotFound
}

func (r *walletRepo) byPartner(partnerID uint) (models.Wallet, bool) {
	for _, w := range r.s.data.wallets {
		if w.PartnerID == partnerID {
			return w, true
		}
	}
	return models.Wallet{}, false
}

func (r *walletRepo) GetOrCreate(ctx context.Context, partnerID uint, currency string) (*models.Wallet, error) {
	if err := r.s.fault("wallets.GetOrCreate"); err != nil {
		return nil, err
	}
	defer r.s.lockWrite()()
	if w, ok := r.byPartner(partnerID); ok {
		return &w, nil
	}
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	now := time.Now()
	w := models.Wallet{
		ID:        r.s.data.nextID(),
		PartnerID: partnerID,
		Currency:  currency,
		Status:    domain.WalletStatusActive,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.s.data.wallets[w.ID] = w
	return &w, nil
}

func (r *walletRepo) Update(ctx context.Context, w *models.Wallet) error {
	if err := r.s.fault("wallets.Update"); err != nil {
		return err
	}
	defer r.s.lockWrite()()
	cur, ok := r.s.data.wallets[w.ID]
	if !ok || cur.Version != w.Version {
		return repository.ErrConflict
	}
	w.Version++
	w.UpdatedAt = time.Now()
	r.s.data.wallets[w.ID] = *w
	return nil
}

func (r *walletRepo) AppendTransaction(ctx context.Context, t *models.WalletTransaction) error {
	if err := r.s.fault("wallets.AppendTransaction"); err != nil {
		return err
	}
	defer r.s.lockWrite()()
	for _, existing := range r.s.data.walletTxns {
		if existing.TransactionID == t.TransactionID {
			return repository.ErrDuplicate
		}
	}
	t.ID = r.s.data.nextID()
	t.CreatedAt = time.Now()
	r.s.data.walletTxns = append(r.s.data.walletTxns, *t)
	return nil
}

func (r *walletRepo) TransactionIDExists(ctx context.Context, transactionID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.data.walletTxns {
		if t.TransactionID == transactionID {
			return true, nil
		}
	}
	return false, nil
}

func (r *walletRepo) ListTransactions(ctx context.Context, partnerID uint, limit, offset int) ([]models.WalletTransaction, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []models.WalletTransaction
	for _, t := range r.s.data.walletTxns {
		if t.PartnerID == partnerID {
			all = append(all, t)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	from, to := window(len(all), offset, limit)
	return all[from:to], int64(len(all)), nil
}
