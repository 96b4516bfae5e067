package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"nexo/internal/domain"
	"nexo/internal/models"
	"nexo/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_RollbackDiscardsOwnWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Partners().Create(ctx, &models.Partner{Name: "A", Phone: "1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	all, total, err := s.Partners().List(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, all)
}

func TestTransaction_RollbackKeepsConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	opened := make(chan struct{})
	written := make(chan struct{})

	go func() {
		<-opened
		assert.NoError(t, s.Payments().Create(ctx, &models.PaymentTransaction{
			PartnerID:   7,
			AmountCents: 5000,
			Status:      domain.PaymentStatusCompleted,
			FeeType:     domain.FeeTypeLeadFee,
		}))
		close(written)
	}()

	err := s.Transaction(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Partners().Create(ctx, &models.Partner{Name: "A", Phone: "1"}))
		close(opened)
		select {
		case <-written:
			t.Error("write outside the transaction finished while it was open")
		case <-time.After(50 * time.Millisecond):
		}
		return errors.New("rolled back")
	})
	require.Error(t, err)
	<-written

	payments, total, err := s.Payments().List(ctx, 7, "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, payments, 1)
	_, partners, err := s.Partners().List(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Zero(t, partners)
}

func TestTransaction_NestedRunsInline(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.Transaction(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Partners().Create(ctx, &models.Partner{Name: "outer", Phone: "1"}))
		inner := tx.Transaction(ctx, func(tx repository.Store) error {
			require.NoError(t, tx.Partners().Create(ctx, &models.Partner{Name: "inner", Phone: "2"}))
			return errors.New("inner failed")
		})
		assert.Error(t, inner)
		return nil
	})
	require.NoError(t, err)

	all, _, err := s.Partners().List(ctx, "", 1, 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "outer", all[0].Name)
}

func TestFailNext(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.FailNext("partners.Create", repository.ErrConflict)

	assert.ErrorIs(t, s.Partners().Create(ctx, &models.Partner{Phone: "1"}), repository.ErrConflict)
	assert.NoError(t, s.Partners().Create(ctx, &models.Partner{Phone: "1"}), "faults fire once")
}
