package service

import (
	"context"
	"time"

	"nexo/internal/repository"
	"nexo/pkg/events"

	"github.com/sirupsen/logrus"
)

// OutboxRelay publishes committed outbox events to the message broker.
type OutboxRelay struct {
	store       repository.Store
	publisher   events.Publisher
	batchSize   int
	maxAttempts int
	log         *logrus.Logger
}

func NewOutboxRelay(store repository.Store, publisher events.Publisher, batchSize, maxAttempts int, log *logrus.Logger) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &OutboxRelay{store: store, publisher: publisher, batchSize: batchSize, maxAttempts: maxAttempts, log: log}
}

// Flush publishes one batch of pending events, oldest insert first. A failed
// event stays pending until it runs out of attempts.
func (r *OutboxRelay) Flush(ctx context.Context) (int, error) {
	pending, err := r.store.Outbox().ListPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	published := 0
	for _, e := range pending {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		entry := r.log.WithFields(logrus.Fields{"event_id": e.EventID, "topic": e.Topic})
		if err := r.publisher.Publish(ctx, e.Topic, e.EventID, e.Payload); err != nil {
			entry.WithError(err).Warn("failed to publish outbox event")
			if err := r.store.Outbox().RecordFailure(ctx, e.ID, err.Error(), r.maxAttempts); err != nil {
				entry.WithError(err).Error("failed to record outbox failure")
			}
			continue
		}
		if err := r.store.Outbox().MarkPublished(ctx, e.ID, time.Now()); err != nil {
			// The event will be published again; consumers dedupe on event_id.
			entry.WithError(err).Error("failed to mark outbox event published")
			continue
		}
		published++
	}
	return published, nil
}
