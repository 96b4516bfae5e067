package memory

import (
	"context"
	"sort"
	"time"

	"nexo/internal/domain"
	"nexo/internal/models"
	"nexo/internal/repository"
)

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if err := r.s.fault("notifications.Create"); err != nil {
		return err
	}
	defer r.s.lockWrite()()
	n.ID = r.s.data.nextID()
	n.CreatedAt = time.Now()
	r.s.data.notifications[n.ID] = *n
	return nil
}

func (r *notificationRepo) ListByRecipient(ctx context.Context, recipientType string, recipientID uint, limit, offset int) ([]models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []models.Notification
	for _, n := range r.s.data.notifications {
		if n.RecipientType == recipientType && n.RecipientID == recipientID {
			all = append(all, n)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	from, to := window(len(all), offset, limit)
	return all[from:to], nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, id uint, recipientType string, recipientID uint) error {
	defer r.s.lockWrite()()
	n, ok := r.s.data.notifications[id]
	if !ok || n.RecipientType != recipientType || n.RecipientID != recipientID {
		return nil
	}
	now := time.Now()
	n.ReadAt = &now
	r.s.data.notifications[id] = n
	return nil
}

type adminRepo struct{ s *Store }

func (r *adminRepo) Create(ctx context.Context, a *models.Admin) error {
	defer r.s.lockWrite()()
	for _, existing := range r.s.data.admins {
		if existing.Email == a.Email {
			return repository.ErrDuplicate
		}
	}
	a.ID = r.s.data.nextID()
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	r.s.data.admins[a.ID] = *a
	return nil
}

func (r *adminRepo) GetByID(ctx context.Context, id uint) (*models.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.data.admins[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *adminRepo) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.data.admins {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *adminRepo) ListActive(ctx context.Context) ([]models.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Admin
	for _, a := range r.s.data.admins {
		if a.IsActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type settingRepo struct{ s *Store }

func (r *settingRepo) Get(ctx context.Context, key string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.data.settings[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	return st.Value, nil
}

func (r *settingRepo) Set(ctx context.Context, key, value string, updatedBy *uint) error {
	defer r.s.lockWrite()()
	now := time.Now()
	st, ok := r.s.data.settings[key]
	if !ok {
		st = models.SystemSetting{ID: r.s.data.nextID(), Key: key, CreatedAt: now}
	}
	st.Value = value
	st.UpdatedBy = updatedBy
	st.UpdatedAt = now
	r.s.data.settings[key] = st
	return nil
}

func (r *settingRepo) GetAll(ctx context.Context) ([]models.SystemSetting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.SystemSetting, 0, len(r.s.data.settings))
	for _, st := range r.s.data.settings {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *settingRepo) SeedDefaults(ctx context.Context, defaults map[string]string) error {
	for k, v := range defaults {
		if _, err := r.Get(ctx, k); err == nil {
			continue
		}
		if err := r.Set(ctx, k, v, nil); err != nil {
			return err
		}
	}
	return nil
}

type outboxRepo struct{ s *Store }

func (r *outboxRepo) Create(ctx context.Context, e *models.OutboxEvent) error {
	if err := r.s.fault("outbox.Create"); err != nil {
		return err
	}
	defer r.s.lockWrite()()
	e.ID = r.s.data.nextID()
	if e.Status == "" {
		e.Status = domain.OutboxPending
	}
	e.CreatedAt = time.Now()
	r.s.data.outbox[e.ID] = *e
	return nil
}

func (r *outboxRepo) ListPending(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.OutboxEvent
	for _, e := range r.s.data.outbox {
		if e.Status == domain.OutboxPending {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *outboxRepo) MarkPublished(ctx context.Context, id uint, at time.Time) error {
	defer r.s.lockWrite()()
	e, ok := r.s.data.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Status = domain.OutboxPublished
	e.PublishedAt = &at
	r.s.data.outbox[id] = e
	return nil
}

func (r *outboxRepo) RecordFailure(ctx context.Context, id uint, reason string, maxAttempts int) error {
	defer r.s.lockWrite()()
	e, ok := r.s.data.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Attempts++
	e.LastError = reason
	if e.Attempts >= maxAttempts {
		e.Status = domain.OutboxFailed
	}
	r.s.data.outbox[id] = e
	return nil
}
