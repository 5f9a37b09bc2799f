package stripe

import (
	"encoding/json"
	"errors"
	"fmt"

	stripego "github.com/stripe/stripe-go/v76"
	stripewebhook "github.com/stripe/stripe-go/v76/webhook"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/application/webhook"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/logging"
)

var ErrInvalidPayload = errors.New("invalid stripe event payload")

var eventKinds = map[string]webhook.Kind{
	"payment_intent.succeeded":      webhook.KindSucceeded,
	"payment_intent.payment_failed": webhook.KindFailed,
	"payment_intent.canceled":       webhook.KindCanceled,
	"payment_intent.processing":     webhook.KindProcessing,
	"charge.refunded":               webhook.KindRefunded,
}

// EventKind maps a Stripe event type onto a reconciler kind.
func EventKind(eventType string) webhook.Kind {
	if kind, ok := eventKinds[eventType]; ok {
		return kind
	}
	return webhook.KindUnknown
}

// WebhookParser authenticates and decodes Stripe event deliveries.
type WebhookParser struct {
	secret string
	logger logging.Logger
}

func NewWebhookParser(secret string, logger logging.Logger) *WebhookParser {
	if secret == "" {
		logger.Warn("stripe webhook secret not configured, signatures will not be verified", nil)
	}
	return &WebhookParser{secret: secret, logger: logger}
}

func (p *WebhookParser) Parse(payload []byte, signature string) (webhook.Event, error) {
	var evt stripego.Event

	if p.secret != "" {
		var err error
		evt, err = stripewebhook.ConstructEventWithOptions(payload, signature, p.secret, stripewebhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			return webhook.Event{}, err
		}
	} else if err := json.Unmarshal(payload, &evt); err != nil {
		return webhook.Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if evt.Type == "" {
		return webhook.Event{}, fmt.Errorf("%w: missing event type", ErrInvalidPayload)
	}

	ref, err := referenceFromObject(evt.Data)
	if err != nil {
		return webhook.Event{}, err
	}

	return webhook.Event{
		ID:                  evt.ID,
		Kind:                EventKind(string(evt.Type)),
		ProviderReferenceID: ref,
		RawType:             string(evt.Type),
	}, nil
}

// referenceFromObject returns the PaymentIntent id the event refers to; charge
// objects point at theirs through payment_intent.
func referenceFromObject(data *stripego.EventData) (string, error) {
	if data == nil || len(data.Raw) == 0 {
		return "", nil
	}

	var obj struct {
		ID            string `json:"id"`
		Object        string `json:"object"`
		PaymentIntent string `json:"payment_intent"`
	}
	if err := json.Unmarshal(data.Raw, &obj); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if obj.Object == "charge" {
		return obj.PaymentIntent, nil
	}
	return obj.ID, nil
}
