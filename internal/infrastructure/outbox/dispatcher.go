package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/application/contracts"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/event"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/logging"
)

type Dispatcher struct {
	Repo         Repository
	EventBus     contracts.EventPublisher
	Logger       logging.Logger
	PollInterval time.Duration
	BatchSize    int
	// Backoff stretches the poll interval while rounds keep failing.
	Backoff Backoff
}

func (d *Dispatcher) Run(ctx context.Context) {
	failures := 0
	timer := time.NewTimer(d.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, failed := d.dispatch(ctx); failed > 0 {
				failures++
			} else {
				failures = 0
			}
			timer.Reset(d.PollInterval + d.Backoff.Delay(failures))
		}
	}
}

// DispatchOnce publishes one batch and returns how many events went out. Events
// whose publish fails stay unpublished and are retried on the next round.
func (d *Dispatcher) DispatchOnce(ctx context.Context) int {
	published, _ := d.dispatch(ctx)
	return published
}

func (d *Dispatcher) dispatch(ctx context.Context) (published, failed int) {
	events, err := d.Repo.FindUnpublished(ctx, d.BatchSize)
	if err != nil {
		d.Logger.Error("outbox poll failed", map[string]any{"error": err})
		return 0, 1
	}

	for _, evt := range events {
		var payload any

		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			d.Logger.Error("outbox payload unreadable", map[string]any{
				"outbox_id": evt.ID,
				"error":     err,
			})
			failed++
			continue
		}

		domainEvent := event.Event{
			Type:    evt.Type,
			Payload: payload,
		}

		if err := d.EventBus.Publish(domainEvent); err != nil {
			d.Logger.Error("outbox publish failed", map[string]any{
				"outbox_id":  evt.ID,
				"event_type": evt.Type,
				"error":      err,
			})
			failed++
			continue
		}

		if err := d.Repo.MarkPublished(ctx, evt.ID); err != nil {
			d.Logger.Error("outbox mark published failed", map[string]any{
				"outbox_id": evt.ID,
				"error":     err,
			})
			failed++
			continue
		}
		published++
	}

	return published, failed
}
