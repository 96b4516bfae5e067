package service

import (
	"context"
	"errors"
	"testing"

	"nexo/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	topics []string
	ids    []string
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, topic, messageID string, _ []byte) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.ids = append(p.ids, messageID)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func TestOutboxRelay_PublishesInOrder(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "950001")
	_, err := f.ledger.Credit(f.ctx, p.ID, 6000, "", "")
	require.NoError(t, err)
	_, rej, err := f.engine.Accept(f.ctx, f.booking(t).ID, p.ID)
	require.NoError(t, err)
	require.Nil(t, rej)

	pub := &fakePublisher{}
	relay := NewOutboxRelay(f.store, pub, 100, 3, f.log)
	n, err := relay.Flush(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, len(pub.topics), n)
	assert.Equal(t, domain.EventWalletUpdated, pub.topics[0])
	assert.Equal(t, domain.EventLeadAccepted, pub.topics[len(pub.topics)-1])

	pending, err := f.store.Outbox().ListPending(f.ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, pending)

	n, err = relay.Flush(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOutboxRelay_GivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	p := f.partner(t, "950002")
	_, err := f.ledger.Credit(f.ctx, p.ID, 6000, "", "")
	require.NoError(t, err)

	pub := &fakePublisher{err: errors.New("broker unreachable")}
	relay := NewOutboxRelay(f.store, pub, 100, 3, f.log)
	for i := 0; i < 3; i++ {
		n, err := relay.Flush(f.ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	pending, err := f.store.Outbox().ListPending(f.ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, pending, "events exceeding max attempts leave the pending queue")
}
