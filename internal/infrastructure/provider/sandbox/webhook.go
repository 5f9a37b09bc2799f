package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/application/webhook"
)

var ErrInvalidPayload = errors.New("invalid sandbox event payload")

// Notification is the sandbox webhook body. Type carries a reconciler kind
// such as payment.succeeded.
type Notification struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	ReferenceID string `json:"referenceId"`
}

// WebhookParser decodes sandbox notifications. There is no signature to check.
type WebhookParser struct{}

func (WebhookParser) Parse(payload []byte, _ string) (webhook.Event, error) {
	var n Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return webhook.Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if n.Type == "" {
		return webhook.Event{}, fmt.Errorf("%w: missing type", ErrInvalidPayload)
	}

	kind := webhook.Kind(n.Type)
	switch kind {
	case webhook.KindSucceeded, webhook.KindFailed, webhook.KindCanceled, webhook.KindProcessing, webhook.KindRefunded:
	default:
		kind = webhook.KindUnknown
	}

	return webhook.Event{
		ID:                  n.ID,
		Kind:                kind,
		ProviderReferenceID: n.ReferenceID,
		RawType:             n.Type,
	}, nil
}
