package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domainTransaction "github.com/rcarvalho-pb/payment-orchestrator/internal/domain/transaction"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/logging"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/metrics"
)

// ActorWebhook attributes every change made from provider notifications.
const ActorWebhook = "WEBHOOK"

type Kind string

const (
	KindSucceeded  Kind = "payment.succeeded"
	KindFailed     Kind = "payment.failed"
	KindCanceled   Kind = "payment.canceled"
	KindProcessing Kind = "payment.processing"
	KindRefunded   Kind = "charge.refunded"
	KindUnknown    Kind = "unknown"
)

// Event is an authenticated provider notification reduced to what
// reconciliation needs.
type Event struct {
	ID                  string
	Kind                Kind
	ProviderReferenceID string
	RawType             string
}

type TransactionManager interface {
	FindByProviderReferenceID(ctx context.Context, ref string) (*domainTransaction.Transaction, error)
	UpdateStatus(ctx context.Context, id string, status domainTransaction.Status, actor string) (*domainTransaction.Transaction, error)
}

type Reconciler struct {
	Transactions TransactionManager
	Logger       logging.Logger
	Metrics      *metrics.Counters
}

// Apply reconciles evt against local state. It never fails: deliveries are
// retried by the provider, so every problem is logged and dropped.
func (r *Reconciler) Apply(ctx context.Context, evt Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Logger.Error("webhook reconciliation panicked", map[string]any{
				"event_id": evt.ID,
				"kind":     evt.Kind,
				"panic":    fmt.Sprint(rec),
			})
		}
	}()

	r.Metrics.IncWebhookReceived()

	fields := map[string]any{
		"event_id":              evt.ID,
		"kind":                  evt.Kind,
		"raw_type":              evt.RawType,
		"provider_reference_id": evt.ProviderReferenceID,
	}

	switch evt.Kind {
	case KindSucceeded:
		r.transition(ctx, evt, domainTransaction.StatusCompleted, fields)
	case KindFailed, KindCanceled:
		r.transition(ctx, evt, domainTransaction.StatusFailed, fields)
	case KindProcessing:
		tx, ok := r.lookup(ctx, evt, fields)
		if !ok {
			return
		}
		fields["transaction_id"] = tx.ID
		fields["status"] = tx.Status
		r.Logger.Info("payment still processing", fields)
	case KindRefunded:
		r.Metrics.IncWebhookIgnored()
		r.Logger.Info("refund notification ignored", fields)
	default:
		r.Metrics.IncWebhookIgnored()
		r.Logger.Info("unhandled webhook event", fields)
	}
}

func (r *Reconciler) transition(ctx context.Context, evt Event, status domainTransaction.Status, fields map[string]any) {
	tx, ok := r.lookup(ctx, evt, fields)
	if !ok {
		return
	}
	fields["transaction_id"] = tx.ID
	fields["target_status"] = status

	updated, err := r.Transactions.UpdateStatus(ctx, tx.ID, status, ActorWebhook)
	switch {
	case err == nil:
		fields["status"] = updated.Status
		r.Logger.Info("webhook applied", fields)
	case errors.Is(err, domainTransaction.ErrTransitionNotAllowed):
		r.Metrics.IncWebhookIgnored()
		if updated != nil {
			fields["status"] = updated.Status
		}
		r.Logger.Warn("contradicting webhook ignored, transaction already terminal", fields)
	default:
		fields["error"] = err
		r.Logger.Error("webhook update failed", fields)
	}
}

func (r *Reconciler) lookup(ctx context.Context, evt Event, fields map[string]any) (*domainTransaction.Transaction, bool) {
	ref := strings.TrimSpace(evt.ProviderReferenceID)
	if ref == "" || domainTransaction.IsSentinelReference(ref) {
		r.Metrics.IncWebhookIgnored()
		r.Logger.Warn("webhook without usable provider reference", fields)
		return nil, false
	}

	tx, err := r.Transactions.FindByProviderReferenceID(ctx, ref)
	if errors.Is(err, domainTransaction.ErrNotFound) {
		r.Metrics.IncWebhookIgnored()
		r.Logger.Warn("no transaction for provider reference", fields)
		return nil, false
	}
	if err != nil {
		fields["error"] = err
		r.Logger.Error("transaction lookup failed", fields)
		return nil, false
	}
	return tx, true
}
