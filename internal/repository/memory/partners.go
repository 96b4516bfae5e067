package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"nexo/internal/models"
	"nexo/internal/repository"
)

type partnerRepo struct{ s *Store }

func (r *partnerRepo) Create(ctx context.Context, p *models.Partner) error {
	if err := r.s.fault("partners.Create"); err != nil {
		return err
	}
	defer r.s.lockWrite()()
	for _, existing := range r.s.data.partners {
		if existing.Phone == p.Phone {
			return repository.ErrDuplicate
		}
	}
	p.ID = r.s.data.nextID()
	if p.Version == 0 {
		p.Version = 1
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	stored := *p
	stored.CurrentPlan = nil
	r.s.data.partners[p.ID] = stored
	return nil
}

func (r *partnerRepo) GetByID(ctx context.Context, id uint) (*models.Partner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.partners[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *partnerRepo) Update(ctx context.Context, p *models.Partner) error {
	if err := r.s.fault("partners.Update"); err != nil {
		return err
	}
	defer r.s.lockWrite()()
	cur, ok := r.s.data.partners[p.ID]
	if !ok || cur.Version != p.Version {
		return repository.ErrConflict
	}
	p.Version++
	p.UpdatedAt = time.Now()
	stored := *p
	stored.CurrentPlan = nil
	stored.CreatedAt = cur.CreatedAt
	r.s.data.partners[p.ID] = stored
	return nil
}

func (r *partnerRepo) List(ctx context.Context, search string, pg, limit int) ([]models.Partner, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	search = strings.ToLower(search)
	var all []models.Partner
	for _, p := range r.s.data.partners {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(p.Phone, search) &&
			!strings.Contains(strings.ToLower(p.City), search) {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	from, to := page(len(all), pg, limit)
	return all[from:to], int64(len(all)), nil
}

func (r *partnerRepo) ListExpired(ctx context.Context, now time.Time) ([]models.Partner, error) {
	return r.filter(func(p models.Partner) bool {
		return p.CurrentPlanID != nil && p.ExpiresAt != nil && p.ExpiresAt.Before(now)
	}), nil
}

func (r *partnerRepo) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Partner, error) {
	return r.filter(func(p models.Partner) bool {
		return p.CurrentPlanID != nil && p.ExpiresAt != nil && !p.ExpiresAt.Before(from) && p.ExpiresAt.Before(to)
	}), nil
}

func (r *partnerRepo) filter(keep func(models.Partner) bool) []models.Partner {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Partner
	for _, p := range r.s.data.partners {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
