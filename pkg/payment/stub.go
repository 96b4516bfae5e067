package payment

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// StubProvider issues local references and never contacts a gateway.
// Orders are completed by posting to the payment webhook.
type StubProvider struct{}

func (s *StubProvider) Name() string { return "stub" }

func (s *StubProvider) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	ref := fmt.Sprintf("stub_%d_%d", time.Now().UnixNano(), req.PartnerID)
	return &PaymentResponse{
		Reference: ref,
		Status:    StatusPending,
		ExpiresAt: time.Now().Add(req.ExpiresIn),
	}, nil
}

func (s *StubProvider) VerifyPayment(ctx context.Context, reference string) (bool, error) {
	return strings.HasPrefix(reference, "stub_"), nil
}
