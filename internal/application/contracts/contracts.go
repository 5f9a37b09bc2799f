package contracts

import (
	"context"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/event"
)

type EventRecorder interface {
	Record(context.Context, event.Event) error
}

type EventPublisher interface {
	Publish(event.Event) error
}
