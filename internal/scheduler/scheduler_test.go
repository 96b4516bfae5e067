package scheduler

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"nexo/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlans struct{ settled, reminded int32 }

func (f *fakePlans) SettleExpired(context.Context) (int, error) {
	atomic.AddInt32(&f.settled, 1)
	return 2, nil
}

func (f *fakePlans) RemindExpiring(context.Context) (int, error) {
	atomic.AddInt32(&f.reminded, 1)
	return 0, errors.New("db down")
}

type fakeOutbox struct{ flushed int32 }

func (f *fakeOutbox) Flush(context.Context) (int, error) {
	atomic.AddInt32(&f.flushed, 1)
	return 0, nil
}

type fakePurger struct{ cutoff time.Time }

func (f *fakePurger) Purge(cutoff time.Time) (int, error) {
	f.cutoff = cutoff
	return 1, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestJobRunner(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	plans, outbox, purger := &fakePlans{}, &fakeOutbox{}, &fakePurger{}
	j := &JobRunner{
		Plans:          plans,
		Outbox:         outbox,
		Idempotency:    purger,
		IdempotencyTTL: 24 * time.Hour,
		Log:            quietLogger(),
		Now:            func() time.Time { return now },
	}

	j.SettleExpiredPlans()
	j.RemindExpiringPlans()
	j.RelayOutbox()
	j.PurgeIdempotencyKeys()

	assert.EqualValues(t, 1, plans.settled)
	assert.EqualValues(t, 1, plans.reminded)
	assert.EqualValues(t, 1, outbox.flushed)
	assert.Equal(t, now.Add(-24*time.Hour), purger.cutoff)
}

func TestJobRunner_NilCollaboratorsAreNoops(t *testing.T) {
	j := &JobRunner{Log: quietLogger()}
	assert.NotPanics(t, func() {
		j.SettleExpiredPlans()
		j.RemindExpiringPlans()
		j.RelayOutbox()
		j.PurgeIdempotencyKeys()
	})
}

func TestNew_RegistersJobs(t *testing.T) {
	cfg := config.Default().Scheduler
	s, err := New(&cfg, &JobRunner{Log: quietLogger()}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 4, s.JobCount())

	cfg.ExpiryReminder = ""
	s, err = New(&cfg, &JobRunner{Log: quietLogger()}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 3, s.JobCount())

	cfg.OutboxRelay = "every ten seconds"
	_, err = New(&cfg, &JobRunner{Log: quietLogger()}, quietLogger())
	assert.Error(t, err)
}

func TestScheduler_RunsJobs(t *testing.T) {
	outbox := &fakeOutbox{}
	cfg := config.SchedulerConfig{OutboxRelay: "* * * * * *"}
	s, err := New(&cfg, &JobRunner{Outbox: outbox, Log: quietLogger()}, quietLogger())
	require.NoError(t, err)

	s.Start()
	defer s.Stop()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&outbox.flushed) > 0 }, 3*time.Second, 50*time.Millisecond)
}
