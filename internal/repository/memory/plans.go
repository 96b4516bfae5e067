package memory

import (
	"context"
	"sort"
	"time"

	"nexo/internal/domain"
	"nexo/internal/models"
	"nexo/internal/repository"
)

type planRepo struct{ s *Store }

func (r *planRepo) Create(ctx context.Context, p *models.Plan) error {
	if err := r.s.fault("plans.Create"); err != nil {
		return err
	}
	defer r.s.lockWrite()()
	for _, existing := range r.s.data.plans {
		if existing.Name == p.Name {
			return repository.ErrDuplicate
		}
	}
	p.ID = r.s.data.nextID()
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.data.plans[p.ID] = *p
	return nil
}

func (r *planRepo) Update(ctx context.Context, p *models.Plan) error {
	if err := r.s.fault("plans.Update"); err != nil {
		return err
	}
	defer r.s.lockWrite()()
	if _, ok := r.s.data.plans[p.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range r.s.data.plans {
		if id != p.ID && existing.Name == p.Name {
			return repository.ErrDuplicate
		}
	}
	p.UpdatedAt = time.Now()
	r.s.data.plans[p.ID] = *p
	return nil
}

func (r *planRepo) GetByID(ctx context.Context, id uint) (*models.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *planRepo) GetByName(ctx context.Context, name string) (*models.Plan, error) {
	return r.first(func(p models.Plan) bool { return p.Name == name })
}

func (r *planRepo) GetDefault(ctx context.Context) (*models.Plan, error) {
	return r.first(func(p models.Plan) bool { return p.IsDefault })
}

func (r *planRepo) first(match func(models.Plan) bool) (*models.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *models.Plan
	for _, p := range r.s.data.plans {
		if match(p) && (found == nil || p.ID < found.ID) {
			p := p
			found = &p
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *planRepo) List(ctx context.Context, activeOnly bool) ([]models.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Plan
	for _, p := range r.s.data.plans {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PriceCents != out[j].PriceCents {
			return out[i].PriceCents < out[j].PriceCents
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *planRepo) ClearDefaultExcept(ctx context.Context, id uint) error {
	defer r.s.lockWrite()()
	for pid, p := range r.s.data.plans {
		if pid != id && p.IsDefault {
			p.IsDefault = false
			r.s.data.plans[pid] = p
		}
	}
	return nil
}

type historyRepo struct{ s *Store }

func (r *historyRepo) Append(ctx context.Context, e *models.PlanHistoryEntry) error {
	if err := r.s.fault("history.Append"); err != nil {
		return err
	}
	defer r.s.lockWrite()()
	e.ID = r.s.data.nextID()
	e.CreatedAt = time.Now()
	r.s.data.history[e.ID] = *e
	return nil
}

func (r *historyRepo) Update(ctx context.Context, e *models.PlanHistoryEntry) error {
	if err := r.s.fault("history.Update"); err != nil {
		return err
	}
	defer r.s.lockWrite()()
	cur, ok := r.s.data.history[e.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.ExpiresAt = e.ExpiresAt
	cur.LeadsConsumed = e.LeadsConsumed
	cur.RefundStatus = e.RefundStatus
	cur.RefundProcessedAt = e.RefundProcessedAt
	cur.Note = e.Note
	r.s.data.history[e.ID] = cur
	return nil
}

func (r *historyRepo) GetByID(ctx context.Context, id uint) (*models.PlanHistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.data.history[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *historyRepo) Latest(ctx context.Context, partnerID uint) (*models.PlanHistoryEntry, error) {
	list, _ := r.ListByPartner(ctx, partnerID)
	for _, e := range list {
		if e.Action == domain.HistoryActionSubscribed || e.Action == domain.HistoryActionRenewed {
			return &e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *historyRepo) ListByPartner(ctx context.Context, partnerID uint) ([]models.PlanHistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.PlanHistoryEntry
	for _, e := range r.s.data.history {
		if e.PartnerID == partnerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *historyRepo) TrimToRecent(ctx context.Context, partnerID uint, keep int) error {
	list, _ := r.ListByPartner(ctx, partnerID)
	if len(list) <= keep {
		return nil
	}
	defer r.s.lockWrite()()
	for _, e := range list[keep:] {
		delete(r.s.data.history, e.ID)
	}
	return nil
}
