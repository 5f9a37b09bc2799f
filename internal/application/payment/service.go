package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/payment"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/provider"
	domainTransaction "github.com/rcarvalho-pb/payment-orchestrator/internal/domain/transaction"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/logging"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/metrics"
)

var ErrInvalidRequest = errors.New("invalid request")

const (
	defaultProviderTimeout = 10 * time.Second

	// duplicates of an in-flight request wait this long past the provider
	// timeout for the first caller to record its outcome
	settleMargin       = time.Second
	settlePollInterval = 10 * time.Millisecond
)

// TransactionManager is the subset of the lifecycle service the orchestrator
// writes through.
type TransactionManager interface {
	Create(ctx context.Context, tx *domainTransaction.Transaction, actor string) (*domainTransaction.Transaction, error)
	Update(ctx context.Context, id, actor string, mutate func(*domainTransaction.Transaction) error) (*domainTransaction.Transaction, error)
	FindByID(ctx context.Context, id string) (*domainTransaction.Transaction, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*domainTransaction.Transaction, error)
	FindAll(ctx context.Context) ([]*domainTransaction.Transaction, error)
}

type Service struct {
	Transactions    TransactionManager
	Gateway         provider.Gateway
	Logger          logging.Logger
	Metrics         *metrics.Counters
	ProviderTimeout time.Duration
}

// Initiate runs one payment attempt per idempotency key. Provider failures are
// recorded on the returned transaction, never returned as errors.
func (s *Service) Initiate(ctx context.Context, req payment.Request, idempotencyKey, actor string) (View, error) {
	if strings.TrimSpace(idempotencyKey) == "" {
		return View{}, fmt.Errorf("%w: idempotency key is required", ErrInvalidRequest)
	}
	if err := validate(req); err != nil {
		return View{}, err
	}

	existing, err := s.Transactions.FindByIdempotencyKey(ctx, idempotencyKey)
	if err == nil {
		return s.replay(ctx, existing)
	}
	if !errors.Is(err, domainTransaction.ErrNotFound) {
		return View{}, err
	}

	tx, err := s.Transactions.Create(ctx, &domainTransaction.Transaction{
		Amount:         req.Amount,
		Currency:       normalizeCurrency(req.Currency),
		PaymentMethod:  req.PaymentMethod,
		Status:         domainTransaction.StatusPending,
		IdempotencyKey: idempotencyKey,
		Provider:       s.Gateway.Name(),
	}, actor)
	if errors.Is(err, domainTransaction.ErrDuplicateIdempotencyKey) {
		// lost the race to a concurrent request with the same key
		winner, findErr := s.Transactions.FindByIdempotencyKey(ctx, idempotencyKey)
		if findErr != nil {
			return View{}, findErr
		}
		return s.replay(ctx, winner)
	}
	if err != nil {
		return View{}, err
	}

	s.Metrics.IncInitiated()

	ref, status := s.charge(ctx, tx, req)

	settled, err := s.Transactions.Update(ctx, tx.ID, actor, func(cur *domainTransaction.Transaction) error {
		if _, err := cur.TransitionTo(status); err != nil {
			return err
		}
		cur.ProviderReferenceID = ref
		return nil
	})
	switch {
	case err == nil:
		return NewView(settled), nil
	case errors.Is(err, domainTransaction.ErrTransitionNotAllowed):
		// a webhook settled it first
		s.Logger.Warn("synchronous result ignored, transaction already terminal", map[string]any{
			"transaction_id": tx.ID,
			"status":         settled.Status,
			"result_status":  status,
			"reference":      ref,
		})
		return NewView(settled), nil
	case errors.Is(err, domainTransaction.ErrDuplicateProviderReference):
		s.Logger.Error("provider returned a reference already bound to another transaction", map[string]any{
			"transaction_id":        tx.ID,
			"provider_reference_id": ref,
			"error":                 err,
		})
		return NewView(tx), nil
	default:
		return View{}, err
	}
}

// charge calls the gateway matching the declared method and returns the
// reference id and local status to record.
func (s *Service) charge(ctx context.Context, tx *domainTransaction.Transaction, req payment.Request) (string, domainTransaction.Status) {
	fields := map[string]any{
		"transaction_id": tx.ID,
		"method":         tx.PaymentMethod,
	}

	var call func(context.Context) (provider.Result, error)

	switch req.PaymentMethod {
	case payment.MethodCreditCard:
		card, ok := req.Details.AsCard()
		if !ok {
			s.Logger.Warn("payment details do not match method", fields)
			return domainTransaction.ReferenceInvalidCardDetails, domainTransaction.StatusFailed
		}
		call = func(ctx context.Context) (provider.Result, error) {
			return s.Gateway.ChargeCard(ctx, tx.Amount, tx.Currency, card, tx.IdempotencyKey)
		}
	case payment.MethodBankTransfer:
		bank, ok := req.Details.AsBankTransfer()
		if !ok {
			s.Logger.Warn("payment details do not match method", fields)
			return domainTransaction.ReferenceInvalidBankDetails, domainTransaction.StatusFailed
		}
		call = func(ctx context.Context) (provider.Result, error) {
			return s.Gateway.ChargeBankTransfer(ctx, tx.Amount, tx.Currency, bank, tx.IdempotencyKey)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout())
	defer cancel()

	result, err := call(callCtx)
	if err != nil {
		fields["error"] = err
		if errors.Is(err, provider.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			s.Logger.Error("provider call timed out", fields)
			return domainTransaction.ReferenceProviderTimeout, domainTransaction.StatusFailed
		}
		s.Logger.Error("provider call failed", fields)
		return domainTransaction.ProviderErrorReference(provider.ErrorCode(err)), domainTransaction.StatusFailed
	}

	fields["provider_reference_id"] = result.ReferenceID
	fields["provider_status"] = result.Status
	s.Logger.Info("provider call completed", fields)

	return result.ReferenceID, domainTransaction.MapProviderStatus(result.Status)
}

func (s *Service) providerTimeout() time.Duration {
	if s.ProviderTimeout <= 0 {
		return defaultProviderTimeout
	}
	return s.ProviderTimeout
}

// replay answers a repeated key with the stored transaction once the request
// that created it has recorded its provider outcome.
func (s *Service) replay(ctx context.Context, tx *domainTransaction.Transaction) (View, error) {
	settled, err := s.awaitSettled(ctx, tx)
	if err != nil {
		return View{}, err
	}
	s.duplicate(settled)
	return NewView(settled), nil
}

// awaitSettled polls while tx is still at its creation version. Every outcome
// of the first request is written through Update, so Version > 1 means it has
// finished. Records older than one provider call plus settleMargin are
// returned as they are.
func (s *Service) awaitSettled(ctx context.Context, tx *domainTransaction.Transaction) (*domainTransaction.Transaction, error) {
	deadline := tx.CreatedAt.Add(s.providerTimeout() + settleMargin)
	if tx.Version > 1 || !time.Now().Before(deadline) {
		return tx, nil
	}

	ticker := time.NewTicker(settlePollInterval)
	defer ticker.Stop()

	for tx.Version == 1 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return tx, nil
		case <-ticker.C:
		}

		next, err := s.Transactions.FindByIdempotencyKey(ctx, tx.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		tx = next
	}
	return tx, nil
}

func (s *Service) duplicate(tx *domainTransaction.Transaction) {
	s.Metrics.IncDuplicate()
	s.Logger.Info("duplicate payment request", map[string]any{
		"transaction_id": tx.ID,
		"status":         tx.Status,
	})
}

func (s *Service) GetByID(ctx context.Context, id string) (View, error) {
	tx, err := s.Transactions.FindByID(ctx, id)
	if err != nil {
		return View{}, err
	}
	return NewView(tx), nil
}

// ListParams carries raw query values; dates use the yyyy-MM-dd layout.
type ListParams struct {
	Status    string
	StartDate string
	EndDate   string
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

func (s *Service) List(ctx context.Context, params ListParams) ([]View, error) {
	filter, err := params.filter()
	if err != nil {
		return nil, err
	}

	all, err := s.Transactions.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := filter.Apply(all)
	views := make([]View, 0, len(matched))
	for _, tx := range matched {
		views = append(views, NewView(tx))
	}
	return views, nil
}

func (p ListParams) filter() (domainTransaction.Filter, error) {
	var f domainTransaction.Filter

	if st := strings.TrimSpace(p.Status); st != "" {
		status, ok := domainTransaction.ParseStatus(strings.ToUpper(st))
		if !ok {
			return f, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, p.Status)
		}
		f.Status = &status
	}

	start, err := domainTransaction.ParseDate(p.StartDate)
	if err != nil {
		return f, fmt.Errorf("%w: startDate must be yyyy-MM-dd", ErrInvalidRequest)
	}
	end, err := domainTransaction.ParseDate(p.EndDate)
	if err != nil {
		return f, fmt.Errorf("%w: endDate must be yyyy-MM-dd", ErrInvalidRequest)
	}
	f.StartDate = start
	f.EndDate = end
	f.MinAmount = p.MinAmount
	f.MaxAmount = p.MaxAmount

	return f, nil
}

func validate(req payment.Request) error {
	if !req.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if len(strings.TrimSpace(req.Currency)) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter code", ErrInvalidRequest)
	}
	if digits := provider.MinorUnitDigits(req.Currency); !req.Amount.Equal(req.Amount.Truncate(digits)) {
		return fmt.Errorf("%w: amount has more than %d decimal places for %s", ErrInvalidRequest, digits, normalizeCurrency(req.Currency))
	}
	if !req.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidRequest, req.PaymentMethod)
	}
	return nil
}

func normalizeCurrency(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
