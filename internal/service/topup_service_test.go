package service

import (
	"context"
	"errors"
	"testing"

	"nexo/internal/domain"
	"nexo/pkg/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingProvider struct{}

func (failingProvider) Name() string { return "broken" }

func (failingProvider) InitiatePayment(context.Context, payment.PaymentRequest) (*payment.PaymentResponse, error) {
	return nil, errors.New("gateway timeout")
}

func (failingProvider) VerifyPayment(context.Context, string) (bool, error) { return false, nil }

func newTopUpService(f *fixture, provider payment.Provider) *TopUpService {
	return NewTopUpService(f.store, f.ledger, provider, f.locks, f.notifier, &f.cfg.Payment, f.log)
}

func TestTopUp_CompleteCreditsAndUnpauses(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "940001")
	_, err := f.ledger.Credit(f.ctx, p.ID, 1000, "", "")
	require.NoError(t, err)
	require.True(t, f.reload(t, p.ID).LeadAcceptancePaused)
	svc := newTopUpService(f, &payment.StubProvider{})

	order, err := svc.Create(f.ctx, p.ID, 10000, "key-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, order.Status)
	assert.Equal(t, "stub", order.Provider)

	again, err := svc.Create(f.ctx, p.ID, 10000, "key-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, again.ID, "same idempotency key returns the same order")

	done, applied, err := svc.Complete(f.ctx, order.ProviderRef, "completed")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, domain.PaymentStatusCompleted, done.Status)
	assert.NotEmpty(t, done.TransactionID)
	assert.EqualValues(t, 11000, f.balance(t, p.ID))
	assert.False(t, f.reload(t, p.ID).LeadAcceptancePaused)

	_, applied, err = svc.Complete(f.ctx, order.ProviderRef, "completed")
	require.NoError(t, err)
	assert.False(t, applied, "replayed webhook is a no-op")
	assert.EqualValues(t, 11000, f.balance(t, p.ID))

	_, total, err := f.store.Payments().List(f.ctx, p.ID, domain.FeeTypeTopUp, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Contains(t, f.notifier.partnerTitles(), "Wallet topped up")
}

func TestTopUp_FailedOrderMovesNoFunds(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "940002")
	svc := newTopUpService(f, &payment.StubProvider{})
	order, err := svc.Create(f.ctx, p.ID, 5000, "")
	require.NoError(t, err)

	done, applied, err := svc.Complete(f.ctx, order.ProviderRef, "FAILED")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, domain.PaymentStatusFailed, done.Status)
	assert.Zero(t, f.balance(t, p.ID))

	_, _, err = svc.Complete(f.ctx, order.ProviderRef, "refunded")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, _, err = svc.Complete(f.ctx, "unknown", "completed")
	assert.ErrorIs(t, err, ErrTopUpNotFound)
}

func TestTopUp_Validation(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "940003")

	_, err := newTopUpService(f, &payment.StubProvider{}).Create(f.ctx, p.ID, 50, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = newTopUpService(f, &payment.StubProvider{}).Create(f.ctx, 999, 5000, "")
	assert.ErrorIs(t, err, ErrPartnerNotFound)
	_, err = newTopUpService(f, failingProvider{}).Create(f.ctx, p.ID, 5000, "")
	assert.ErrorIs(t, err, ErrPaymentProvider)
}

func TestTopUp_GetIsScopedToPartner(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "940004")
	other := f.partner(t, "940005")
	svc := newTopUpService(f, &payment.StubProvider{})
	order, err := svc.Create(f.ctx, p.ID, 5000, "")
	require.NoError(t, err)

	got, err := svc.Get(f.ctx, p.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ProviderRef, got.ProviderRef)
	_, err = svc.Get(f.ctx, other.ID, order.ID)
	assert.ErrorIs(t, err, ErrTopUpNotFound)
}

type confirmingProvider struct {
	payment.StubProvider
	paid bool
	err  error
}

func (p *confirmingProvider) VerifyPayment(context.Context, string) (bool, error) {
	return p.paid, p.err
}

func TestTopUp_CompleteRequiresProviderConfirmation(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "940006")
	provider := &confirmingProvider{}
	svc := newTopUpService(f, provider)
	order, err := svc.Create(f.ctx, p.ID, 500000, "")
	require.NoError(t, err)

	_, applied, err := svc.Complete(f.ctx, order.ProviderRef, "paid")
	assert.ErrorIs(t, err, ErrPaymentUnverified)
	assert.False(t, applied)
	assert.Zero(t, f.balance(t, p.ID))

	provider.err = errors.New("gateway down")
	_, _, err = svc.Complete(f.ctx, order.ProviderRef, "paid")
	assert.ErrorIs(t, err, ErrPaymentProvider)
	assert.Zero(t, f.balance(t, p.ID))

	// failures need no confirmation
	provider.err = nil
	done, applied, err := svc.Complete(f.ctx, order.ProviderRef, "failed")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, domain.PaymentStatusFailed, done.Status)
}
