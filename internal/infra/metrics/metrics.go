package metrics

import (
	"sync/atomic"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/event"
)

type Counters struct {
	PaymentsInitiated uint64
	DuplicateRequests uint64
	PaymentsCompleted uint64
	PaymentsFailed    uint64
	WebhooksReceived  uint64
	WebhooksIgnored   uint64
}

type Snapshot struct {
	PaymentsInitiated uint64 `json:"payments_initiated"`
	DuplicateRequests uint64 `json:"duplicate_requests"`
	PaymentsCompleted uint64 `json:"payments_completed"`
	PaymentsFailed    uint64 `json:"payments_failed"`
	WebhooksReceived  uint64 `json:"webhooks_received"`
	WebhooksIgnored   uint64 `json:"webhooks_ignored"`
}

func (c *Counters) IncInitiated() {
	atomic.AddUint64(&c.PaymentsInitiated, 1)
}

func (c *Counters) IncDuplicate() {
	atomic.AddUint64(&c.DuplicateRequests, 1)
}

func (c *Counters) IncCompleted() {
	atomic.AddUint64(&c.PaymentsCompleted, 1)
}

func (c *Counters) IncFailed() {
	atomic.AddUint64(&c.PaymentsFailed, 1)
}

func (c *Counters) IncWebhookReceived() {
	atomic.AddUint64(&c.WebhooksReceived, 1)
}

func (c *Counters) IncWebhookIgnored() {
	atomic.AddUint64(&c.WebhooksIgnored, 1)
}

// HandleEvent counts terminal transitions delivered by the event bus, so both
// the synchronous and webhook paths are counted once.
func (c *Counters) HandleEvent(evt event.Event) error {
	switch evt.Type {
	case event.TransactionCompleted:
		c.IncCompleted()
	case event.TransactionFailed:
		c.IncFailed()
	}
	return nil
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		PaymentsInitiated: atomic.LoadUint64(&c.PaymentsInitiated),
		DuplicateRequests: atomic.LoadUint64(&c.DuplicateRequests),
		PaymentsCompleted: atomic.LoadUint64(&c.PaymentsCompleted),
		PaymentsFailed:    atomic.LoadUint64(&c.PaymentsFailed),
		WebhooksReceived:  atomic.LoadUint64(&c.WebhooksReceived),
		WebhooksIgnored:   atomic.LoadUint64(&c.WebhooksIgnored),
	}
}
