package payment

import (
	"context"
	"time"
)

const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

type PaymentRequest struct {
	PartnerID      uint
	AmountCents    int64
	Currency       string
	IdempotencyKey string // doubles as the merchant receipt id
	Description    string
	Notes          map[string]string
	ExpiresIn      time.Duration
}

type PaymentResponse struct {
	Reference   string
	Status      string
	CheckoutURL string
	ExpiresAt   time.Time
}

// Provider creates wallet top-up orders with a payment gateway.
type Provider interface {
	Name() string
	InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error)
	VerifyPayment(ctx context.Context, reference string) (bool, error)
}
