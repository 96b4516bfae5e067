package scheduler

import (
	"fmt"
	"time"

	"nexo/config"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs the periodic maintenance jobs on cron specs with a seconds field.
type Scheduler struct {
	cron *cron.Cron
	jobs *JobRunner
	log  *logrus.Logger
}

func New(cfg *config.SchedulerConfig, jobs *JobRunner, log *logrus.Logger) (*Scheduler, error) {
	cl := cron.PrintfLogger(log)
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s := &Scheduler{cron: c, jobs: jobs, log: log}

	specs := []struct {
		name string
		spec string
		fn   func()
	}{
		{"settle_expired_plans", cfg.ExpirySettlement, jobs.SettleExpiredPlans},
		{"remind_expiring_plans", cfg.ExpiryReminder, jobs.RemindExpiringPlans},
		{"relay_outbox", cfg.OutboxRelay, jobs.RelayOutbox},
		{"purge_idempotency_keys", cfg.IdempotencyPurge, jobs.PurgeIdempotencyKeys},
	}
	for _, j := range specs {
		if j.spec == "" {
			log.WithField("job", j.name).Warn("job has no schedule, skipping")
			continue
		}
		if _, err := c.AddFunc(j.spec, j.fn); err != nil {
			return nil, fmt.Errorf("failed to register %s job: %w", j.name, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.log.WithField("jobs", len(s.cron.Entries())).Info("starting cron scheduler")
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron scheduler stopped")
}

func (s *Scheduler) JobCount() int {
	return len(s.cron.Entries())
}
