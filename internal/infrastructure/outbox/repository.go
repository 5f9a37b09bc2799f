package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/event"
)

var ErrEventNotFound = errors.New("outbox event not found")

// OutboxEvent is a domain event waiting for, or past, delivery to the bus.
type OutboxEvent struct {
	ID          string
	Type        event.Type
	Payload     []byte
	Published   bool
	CreatedAt   time.Time
	PublishedAt time.Time
}

type Repository interface {
	Save(context.Context, OutboxEvent) error
	// FindUnpublished returns up to limit pending events, oldest first.
	FindUnpublished(ctx context.Context, limit int) ([]OutboxEvent, error)
	// MarkPublished fails with ErrEventNotFound for an unknown id.
	MarkPublished(ctx context.Context, id string) error
}
