package service

import (
	"context"
	"strings"
	"time"

	"nexo/internal/domain"
	"nexo/internal/models"
	"nexo/internal/repository"
)

// BookingService creates and lists the booking leads offered to partners.
type BookingService struct {
	store repository.Store
}

func NewBookingService(store repository.Store) *BookingService {
	return &BookingService{store: store}
}

type BookingInput struct {
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	ServiceName   string     `json:"service_name" binding:"required"`
	Address       string     `json:"address"`
	City          string     `json:"city"`
	AmountCents   int64      `json:"amount_cents" binding:"min=0"`
	ScheduledAt   *time.Time `json:"scheduled_at"`
}

func (s *BookingService) Create(ctx context.Context, in BookingInput) (*models.Booking, error) {
	if strings.TrimSpace(in.ServiceName) == "" || in.AmountCents < 0 {
		return nil, ErrInvalidRequest
	}
	b := &models.Booking{
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		ServiceName:   strings.TrimSpace(in.ServiceName),
		Address:       in.Address,
		City:          in.City,
		AmountCents:   in.AmountCents,
		ScheduledAt:   in.ScheduledAt,
		Status:        domain.BookingStatusPending,
	}
	if err := s.store.Bookings().Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BookingService) Get(ctx context.Context, id uint) (*models.Booking, error) {
	b, err := s.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrBookingNotFound)
	}
	return b, nil
}

func (s *BookingService) List(ctx context.Context, status string, page, limit int) ([]models.Booking, int64, error) {
	return s.store.Bookings().List(ctx, strings.ToUpper(status), page, limit)
}

func (s *BookingService) ListByPartner(ctx context.Context, partnerID uint, limit, offset int) ([]models.Booking, error) {
	return s.store.Bookings().ListByPartner(ctx, partnerID, limit, offset)
}
