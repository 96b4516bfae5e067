package memory

import (
	"context"
	"sort"
	"time"

	"nexo/internal/models"
	"nexo/internal/repository"
)

type bookingRepo struct{ s *Store }

func (r *bookingRepo) Create(ctx context.Context, b *models.Booking) error {
	if err := r.s.fault("bookings.Create"); err != nil {
		return err
	}
	defer r.s.lockWrite()()
	b.ID = r.s.data.nextID()
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	r.s.data.bookings[b.ID] = *b
	return nil
}

func (r *bookingRepo) GetByID(ctx context.Context, id uint) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.data.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r *bookingRepo) Update(ctx context.Context, b *models.Booking) error {
	if err := r.s.fault("bookings.Update"); err != nil {
		return err
	}
	defer r.s.lockWrite()()
	if _, ok := r.s.data.bookings[b.ID]; !ok {
		return repository.ErrNotFound
	}
	b.UpdatedAt = time.Now()
	r.s.data.bookings[b.ID] = *b
	return nil
}

func (r *bookingRepo) List(ctx context.Context, status string, pg, limit int) ([]models.Booking, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []models.Booking
	for _, b := range r.s.data.bookings {
		if status == "" || b.Status == status {
			all = append(all, b)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	from, to := page(len(all), pg, limit)
	return all[from:to], int64(len(all)), nil
}

func (r *bookingRepo) ListByPartner(ctx context.Context, partnerID uint, limit, offset int) ([]models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []models.Booking
	for _, b := range r.s.data.bookings {
		if b.PartnerID != nil && *b.PartnerID == partnerID {
			all = append(all, b)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	from, to := window(len(all), offset, limit)
	return all[from:to], nil
}
