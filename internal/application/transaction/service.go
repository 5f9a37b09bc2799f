package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/application/contracts"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/event"
	domainTransaction "github.com/rcarvalho-pb/payment-orchestrator/internal/domain/transaction"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/logging"
)

const (
	maxUpdateAttempts    = 5
	maxReferenceAttempts = 3
)

// Service is the only writer of transaction state. Every write goes through
// Create or Update; UpdateStatus is Update constrained by the state machine.
type Service struct {
	Repo     domainTransaction.Repository
	Recorder contracts.EventRecorder
	Logger   logging.Logger
	Now      func() time.Time
}

func (s *Service) Create(ctx context.Context, tx *domainTransaction.Transaction, actor string) (*domainTransaction.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	generated := tx.TransactionReference == ""
	if generated {
		tx.TransactionReference = domainTransaction.NewReference()
	}
	if tx.Status == "" {
		tx.Status = domainTransaction.StatusPending
	}

	now := s.now()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	tx.CreatedBy = actor
	tx.LastModifiedBy = actor
	tx.Version = 1

	err := s.Repo.Create(ctx, tx)
	// references are short; draw a fresh one on collision
	for attempt := 1; attempt < maxReferenceAttempts; attempt++ {
		if !generated || !errors.Is(err, domainTransaction.ErrDuplicateTransactionReference) {
			break
		}
		s.Logger.Warn("transaction reference collision, regenerating", map[string]any{
			"transaction_id": tx.ID,
			"reference":      tx.TransactionReference,
			"attempt":        attempt,
		})
		tx.TransactionReference = domainTransaction.NewReference()
		err = s.Repo.Create(ctx, tx)
	}
	if err != nil {
		return nil, err
	}

	s.Logger.Info("transaction created", map[string]any{
		"actor":          actor,
		"transaction_id": tx.ID,
		"reference":      tx.TransactionReference,
		"amount":         tx.Amount.String(),
		"currency":       tx.Currency,
		"method":         tx.PaymentMethod,
		"status":         tx.Status,
	})

	s.record(ctx, event.Event{
		Type: event.TransactionCreated,
		Payload: event.TransactionCreatedPayload{
			TransactionID:        tx.ID,
			TransactionReference: tx.TransactionReference,
			PaymentMethod:        string(tx.PaymentMethod),
			Actor:                actor,
		},
	})

	return tx.Clone(), nil
}

// Update applies mutate to a private copy of the stored transaction as an atomic
// read-modify-write, retrying when another writer got in between. A mutation
// that changes nothing is not written. When mutate fails the stored
// transaction is returned along with its error.
func (s *Service) Update(ctx context.Context, id, actor string, mutate func(*domainTransaction.Transaction) error) (*domainTransaction.Transaction, error) {
	for attempt := 1; ; attempt++ {
		current, err := s.Repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}

		next := current.Clone()
		if err := mutate(next); err != nil {
			return current, err
		}

		if next.Status == current.Status && next.ProviderReferenceID == current.ProviderReferenceID {
			return current, nil
		}

		next.UpdatedAt = s.now()
		next.LastModifiedBy = actor

		err = s.Repo.Update(ctx, next)
		if errors.Is(err, domainTransaction.ErrConcurrentModification) && attempt < maxUpdateAttempts {
			s.Logger.Warn("transaction update conflict, retrying", map[string]any{
				"transaction_id": id,
				"attempt":        attempt,
			})
			continue
		}
		if err != nil {
			return nil, err
		}

		s.Logger.Info("transaction modified", map[string]any{
			"actor":                 actor,
			"transaction_id":        next.ID,
			"reference":             next.TransactionReference,
			"status":                next.Status,
			"provider_reference_id": next.ProviderReferenceID,
		})

		if next.Status != current.Status {
			s.recordStatus(ctx, next, actor)
		}

		return next.Clone(), nil
	}
}

// UpdateStatus moves the transaction to status. Re-applying the current status
// is a no-op; leaving a terminal status fails with ErrTransitionNotAllowed.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domainTransaction.Status, actor string) (*domainTransaction.Transaction, error) {
	return s.Update(ctx, id, actor, func(tx *domainTransaction.Transaction) error {
		_, err := tx.TransitionTo(status)
		return err
	})
}

func (s *Service) FindByID(ctx context.Context, id string) (*domainTransaction.Transaction, error) {
	return s.Repo.FindByID(ctx, id)
}

func (s *Service) FindByIdempotencyKey(ctx context.Context, key string) (*domainTransaction.Transaction, error) {
	return s.Repo.FindByIdempotencyKey(ctx, key)
}

func (s *Service) FindByProviderReferenceID(ctx context.Context, ref string) (*domainTransaction.Transaction, error) {
	return s.Repo.FindByProviderReferenceID(ctx, ref)
}

func (s *Service) FindAll(ctx context.Context) ([]*domainTransaction.Transaction, error) {
	return s.Repo.FindAll(ctx)
}

// now is truncated to microseconds so values survive every store unchanged.
func (s *Service) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().UTC().Truncate(time.Microsecond)
}

func (s *Service) recordStatus(ctx context.Context, tx *domainTransaction.Transaction, actor string) {
	var typ event.Type
	switch tx.Status {
	case domainTransaction.StatusCompleted:
		typ = event.TransactionCompleted
	case domainTransaction.StatusFailed:
		typ = event.TransactionFailed
	default:
		return
	}

	s.record(ctx, event.Event{
		Type: typ,
		Payload: event.TransactionStatusPayload{
			TransactionID:       tx.ID,
			Status:              string(tx.Status),
			ProviderReferenceID: tx.ProviderReferenceID,
			Actor:               actor,
		},
	})
}

// TODO: write the outbox row in the same SQL transaction as the state change;
// today a crash between the two loses the event.
func (s *Service) record(ctx context.Context, evt event.Event) {
	if s.Recorder == nil {
		return
	}
	if err := s.Recorder.Record(ctx, evt); err != nil {
		s.Logger.Error("outbox record failed", map[string]any{
			"event_type": evt.Type,
			"error":      err,
		})
	}
}
