package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/infrastructure/outbox"
)

type OutboxRepository struct {
	mu     sync.RWMutex
	events map[string]*outbox.OutboxEvent
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{
		events: make(map[string]*outbox.OutboxEvent),
	}
}

func (r *OutboxRepository) Save(_ context.Context, evt outbox.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[evt.ID] = &evt
	return nil
}

func (r *OutboxRepository) FindUnpublished(_ context.Context, limit int) ([]outbox.OutboxEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var events []outbox.OutboxEvent
	for _, evt := range r.events {
		if !evt.Published {
			events = append(events, *evt)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})

	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	evt, ok := r.events[id]
	if !ok {
		return fmt.Errorf("%w: %s", outbox.ErrEventNotFound, id)
	}
	evt.Published = true
	evt.PublishedAt = time.Now().UTC()
	return nil
}
