package memory

import (
	"context"
	"sort"
	"time"

	"nexo/internal/models"
	"nexo/internal/repository"
)

type paymentRepo struct{ s *Store }

func (r *paymentRepo) Create(ctx context.Context, p *models.PaymentTransaction) error {
	if err := r.s.fault("payments.Create"); err != nil {
		return err
	}
	defer r.s.lockWrite()()
	p.ID = r.s.data.nextID()
	p.CreatedAt = time.Now()
	r.s.data.payments = append(r.s.data.payments, *p)
	return nil
}

func (r *paymentRepo) List(ctx context.Context, partnerID uint, feeType string, pg, limit int) ([]models.PaymentTransaction, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []models.PaymentTransaction
	for _, p := range r.s.data.payments {
		if partnerID != 0 && p.PartnerID != partnerID {
			continue
		}
		if feeType != "" && p.FeeType != feeType {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	from, to := page(len(all), pg, limit)
	return all[from:to], int64(len(all)), nil
}

type topUpRepo struct{ s *Store }

func (r *topUpRepo) Create(ctx context.Context, t *models.TopUp) error {
	if err := r.s.fault("topups.Create"); err != nil {
		return err
	}
	defer r.s.lockWrite()()
	for _, existing := range r.s.data.topUps {
		if (t.ProviderRef != "" && existing.ProviderRef == t.ProviderRef) ||
			(t.IdempotencyKey != "" && existing.IdempotencyKey == t.IdempotencyKey) {
			return repository.ErrDuplicate
		}
	}
	t.ID = r.s.data.nextID()
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	r.s.data.topUps[t.ID] = *t
	return nil
}

func (r *topUpRepo) GetByID(ctx context.Context, id uint) (*models.TopUp, error) {
	return r.first(func(t models.TopUp) bool { return t.ID == id })
}

func (r *topUpRepo) GetByProviderRef(ctx context.Context, ref string) (*models.TopUp, error) {
	return r.first(func(t models.TopUp) bool { return ref != "" && t.ProviderRef == ref })
}

func (r *topUpRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.TopUp, error) {
	return r.first(func(t models.TopUp) bool { return key != "" && t.IdempotencyKey == key })
}

func (r *topUpRepo) first(match func(models.TopUp) bool) (*models.TopUp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.data.topUps {
		if match(t) {
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *topUpRepo) Update(ctx context.Context, t *models.TopUp) error {
	if err := r.s.fault("topups.Update"); err != nil {
		return err
	}
	defer r.s.lockWrite()()
	if _, ok := r.s.data.topUps[t.ID]; !ok {
		return repository.ErrNotFound
	}
	t.UpdatedAt = time.Now()
	r.s.data.topUps[t.ID] = *t
	return nil
}
