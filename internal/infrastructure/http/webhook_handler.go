package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/application/webhook"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/logging"
)

const SignatureHeader = "Stripe-Signature"

// WebhookParser authenticates a raw delivery and decodes it.
type WebhookParser interface {
	Parse(payload []byte, signature string) (webhook.Event, error)
}

type Reconciler interface {
	Apply(ctx context.Context, evt webhook.Event)
}

type WebhookHandler struct {
	Parser     WebhookParser
	Reconciler Reconciler
	Logger     logging.Logger
	MaxBytes   int64
}

// Handle rejects deliveries it cannot authenticate or decode. Anything else is
// acknowledged, whatever reconciliation made of it, so the provider stops
// retrying.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 16
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "webhook body too large or unreadable")
		return
	}

	evt, err := h.Parser.Parse(payload, r.Header.Get(SignatureHeader))
	if err != nil {
		h.Logger.Warn("webhook rejected", map[string]any{
			"remote_addr": r.RemoteAddr,
			"error":       err,
		})
		writeError(w, http.StatusBadRequest, "invalid webhook payload or signature")
		return
	}

	h.Reconciler.Apply(context.WithoutCancel(r.Context()), evt)

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
