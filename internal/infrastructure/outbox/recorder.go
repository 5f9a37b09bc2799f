package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/event"
)

type Recorder struct {
	Repo Repository
	Now  func() time.Time
}

func (r *Recorder) Record(ctx context.Context, evt event.Event) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", evt.Type, err)
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	return r.Repo.Save(ctx, OutboxEvent{
		ID:        "outbox_" + uuid.NewString(),
		Type:      evt.Type,
		Payload:   payload,
		CreatedAt: now().UTC(),
	})
}
