package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type PlanJobs interface {
	SettleExpired(ctx context.Context) (int, error)
	RemindExpiring(ctx context.Context) (int, error)
}

type OutboxFlusher interface {
	Flush(ctx context.Context) (int, error)
}

type IdempotencyPurger interface {
	Purge(cutoff time.Time) (int, error)
}

// JobRunner holds the work behind each scheduled job. Nil collaborators turn
// their job into a no-op.
type JobRunner struct {
	Plans          PlanJobs
	Outbox         OutboxFlusher
	Idempotency    IdempotencyPurger
	IdempotencyTTL time.Duration
	Timeout        time.Duration
	Log            *logrus.Logger
	Now            func() time.Time
}

func (j *JobRunner) jobContext() (context.Context, context.CancelFunc) {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (j *JobRunner) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

// SettleExpiredPlans settles refunds and pauses partners whose plan lapsed.
func (j *JobRunner) SettleExpiredPlans() {
	if j.Plans == nil {
		return
	}
	ctx, cancel := j.jobContext()
	defer cancel()
	n, err := j.Plans.SettleExpired(ctx)
	j.report("settle_expired_plans", n, err)
}

func (j *JobRunner) RemindExpiringPlans() {
	if j.Plans == nil {
		return
	}
	ctx, cancel := j.jobContext()
	defer cancel()
	n, err := j.Plans.RemindExpiring(ctx)
	j.report("remind_expiring_plans", n, err)
}

func (j *JobRunner) RelayOutbox() {
	if j.Outbox == nil {
		return
	}
	ctx, cancel := j.jobContext()
	defer cancel()
	n, err := j.Outbox.Flush(ctx)
	if err == nil && n == 0 {
		return
	}
	j.report("relay_outbox", n, err)
}

func (j *JobRunner) PurgeIdempotencyKeys() {
	if j.Idempotency == nil {
		return
	}
	ttl := j.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	n, err := j.Idempotency.Purge(j.now().Add(-ttl))
	j.report("purge_idempotency_keys", n, err)
}

func (j *JobRunner) report(job string, n int, err error) {
	entry := j.Log.WithFields(logrus.Fields{"job": job, "affected": n})
	if err != nil {
		entry.WithError(err).Error("scheduled job failed")
		return
	}
	entry.Info("scheduled job finished")
}
