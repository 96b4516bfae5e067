package service

import (
	"errors"
	"regexp"
	"testing"

	"nexo/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_BalanceIsRunningSum(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "900001")

	ops := []struct {
		credit bool
		amount int64
	}{
		{true, 10000}, {false, 2500}, {true, 399}, {false, 12000}, {true, 7000}, {false, 1},
	}
	var sum int64
	for _, op := range ops {
		if op.credit {
			sum += op.amount
			txn, err := f.ledger.Credit(f.ctx, p.ID, op.amount, "credit", "")
			require.NoError(t, err)
			assert.Equal(t, sum, txn.BalanceAfterCents)
		} else {
			sum -= op.amount
			txn, err := f.ledger.Debit(f.ctx, p.ID, op.amount, "debit", "")
			require.NoError(t, err)
			assert.Equal(t, sum, txn.BalanceAfterCents)
		}
	}
	assert.Equal(t, sum, f.balance(t, p.ID))

	txns, total, err := f.ledger.ListTransactions(f.ctx, p.ID, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, len(ops), total)
	var signed int64
	for _, txn := range txns {
		signed += txn.SignedAmount()
	}
	assert.Equal(t, sum, signed)
	// newest first
	assert.Equal(t, sum, txns[0].BalanceAfterCents)
}

func TestLedger_DebitMayGoNegative(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "900002")

	_, err := f.ledger.Credit(f.ctx, p.ID, 1000, "top-up", "")
	require.NoError(t, err)
	txn, err := f.ledger.Debit(f.ctx, p.ID, 5000, "lead fee", "")
	require.NoError(t, err)
	assert.EqualValues(t, -4000, txn.BalanceAfterCents)
	assert.EqualValues(t, -4000, f.balance(t, p.ID))
}

func TestLedger_RejectsNonPositiveAmounts(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "900003")

	_, err := f.ledger.Credit(f.ctx, p.ID, 0, "", "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.ledger.Debit(f.ctx, p.ID, -5, "", "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Zero(t, f.balance(t, p.ID))
}

func TestLedger_UnknownPartner(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.Credit(f.ctx, 4242, 100, "", "")
	assert.ErrorIs(t, err, ErrPartnerNotFound)
}

func TestLedger_WalletAutoCreatedOnRead(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "900004")

	w, err := f.ledger.GetWallet(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, w.BalanceCents)
	assert.Equal(t, "INR", w.Currency)
	assert.Equal(t, domain.WalletStatusActive, w.Status)
}

func TestLedger_PauseFollowsMinimumBalance(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "900005")

	// free tier minimum is 2000
	_, err := f.ledger.Credit(f.ctx, p.ID, 1000, "", "")
	require.NoError(t, err)
	assert.True(t, f.reload(t, p.ID).LeadAcceptancePaused)

	_, err = f.ledger.Credit(f.ctx, p.ID, 1000, "", "")
	require.NoError(t, err)
	assert.False(t, f.reload(t, p.ID).LeadAcceptancePaused, "balance equal to minimum is not paused")

	_, err = f.ledger.Credit(f.ctx, p.ID, 500, "", "")
	require.NoError(t, err)
	assert.False(t, f.reload(t, p.ID).LeadAcceptancePaused)

	_, err = f.ledger.Debit(f.ctx, p.ID, 501, "", "")
	require.NoError(t, err)
	assert.True(t, f.reload(t, p.ID).LeadAcceptancePaused)
}

func TestLedger_PauseUsesSettingsOverride(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "900006")
	require.NoError(t, f.store.Settings().Set(f.ctx, domain.SettingFreeTierMinBalance, "100", nil))

	_, err := f.ledger.Credit(f.ctx, p.ID, 150, "", "")
	require.NoError(t, err)
	assert.False(t, f.reload(t, p.ID).LeadAcceptancePaused)
}

func TestLedger_RetriesTransactionIDCollisions(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "900007")

	ids := []string{"TXN0000000000000001", "TXN0000000000000001", "TXN0000000000000001", "TXN0000000000000002"}
	f.ledger.NewTxnID = func() (string, error) {
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}
	first, err := f.ledger.Credit(f.ctx, p.ID, 100, "", "")
	require.NoError(t, err)
	assert.Equal(t, "TXN0000000000000001", first.TransactionID)

	second, err := f.ledger.Credit(f.ctx, p.ID, 100, "", "")
	require.NoError(t, err)
	assert.Equal(t, "TXN0000000000000002", second.TransactionID)
	assert.Empty(t, ids)
}

func TestLedger_GivesUpAfterTenCollisions(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "900008")

	_, err := f.ledger.Credit(f.ctx, p.ID, 100, "", "")
	require.NoError(t, err)
	txns, _, err := f.ledger.ListTransactions(f.ctx, p.ID, 1, 0)
	require.NoError(t, err)
	taken := txns[0].TransactionID

	calls := 0
	f.ledger.NewTxnID = func() (string, error) {
		calls++
		return taken, nil
	}
	_, err = f.ledger.Credit(f.ctx, p.ID, 100, "", "")
	assert.ErrorIs(t, err, ErrTransactionIDExhausted)
	assert.Equal(t, maxTransactionIDAttempts, calls)
	assert.EqualValues(t, 100, f.balance(t, p.ID), "failed credit must not move the balance")
}

func TestNewTransactionID_UniqueOverTenThousand(t *testing.T) {
	format := regexp.MustCompile(`^TXN[0-9A-F]{16}$`)
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id, err := NewTransactionID()
		require.NoError(t, err)
		require.Regexp(t, format, id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestLedger_PersistenceFailureAppliesNothing(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "900009")
	_, err := f.ledger.Credit(f.ctx, p.ID, 5000, "", "")
	require.NoError(t, err)

	boom := errors.New("disk full")
	f.store.FailNext("wallets.AppendTransaction", boom)
	_, err = f.ledger.Debit(f.ctx, p.ID, 1000, "", "")
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 5000, f.balance(t, p.ID))

	_, total, err := f.ledger.ListTransactions(f.ctx, p.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestLedger_BlockedWalletRefusesDebits(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "900010")
	_, err := f.ledger.Credit(f.ctx, p.ID, 5000, "", "")
	require.NoError(t, err)

	w, err := f.ledger.SetWalletStatus(f.ctx, p.ID, domain.WalletStatusBlocked)
	require.NoError(t, err)
	assert.Equal(t, domain.WalletStatusBlocked, w.Status)

	_, err = f.ledger.Debit(f.ctx, p.ID, 100, "", "")
	assert.ErrorIs(t, err, ErrWalletBlocked)
	_, err = f.ledger.Credit(f.ctx, p.ID, 100, "", "")
	assert.NoError(t, err)
	assert.EqualValues(t, 5100, f.balance(t, p.ID))

	_, err = f.ledger.SetWalletStatus(f.ctx, p.ID, "FROZEN")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestLedger_WritesOutboxAndBroadcasts(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "900011")

	txn, err := f.ledger.Credit(f.ctx, p.ID, 2500, "top-up", "ref-1")
	require.NoError(t, err)
	assert.Equal(t, "ref-1", txn.Reference)

	pending, err := f.store.Outbox().ListPending(f.ctx, 10)
	require.NoError(t, err)
	var topics []string
	for _, e := range pending {
		topics = append(topics, e.Topic)
	}
	assert.Contains(t, topics, domain.EventWalletUpdated)
	assert.Equal(t, 1, f.realtime.count(p.ID))
}

func TestLedger_Summary(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "900012")
	plan := f.plan(t, "Gold", 10, 4000, 1500)
	_, err := f.plans.Subscribe(f.ctx, p.ID, plan.ID)
	require.NoError(t, err)
	_, err = f.ledger.Credit(f.ctx, p.ID, 3000, "", "")
	require.NoError(t, err)

	sum, err := f.ledger.Summary(f.ctx, p.ID, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3000, sum.Wallet.BalanceCents)
	assert.EqualValues(t, 4000, sum.Terms.LeadFeeCents)
	assert.EqualValues(t, 1500, sum.Terms.MinWalletBalanceCents)
	assert.False(t, sum.LeadAcceptancePaused)
	require.NotNil(t, sum.Subscription)
	require.NotNil(t, sum.Subscription.Plan)
	assert.Equal(t, "Gold", sum.Subscription.Plan.Name)
	assert.Len(t, sum.Transactions, 1)
}
