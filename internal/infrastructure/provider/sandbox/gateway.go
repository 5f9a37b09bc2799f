package sandbox

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/payment"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/provider"
	domainTransaction "github.com/rcarvalho-pb/payment-orchestrator/internal/domain/transaction"
)

const Name = "sandbox"

// Well-known test tokens with fixed outcomes.
const (
	TokenVisa                   = "pm_card_visa"
	TokenChargeDeclined         = "pm_card_chargeDeclined"
	TokenAuthenticationRequired = "pm_card_authenticationRequired"
)

// Gateway simulates a provider locally. Known test tokens behave
// deterministically; any other token succeeds with SuccessRate probability.
// Replaying an idempotency key returns the first answer.
type Gateway struct {
	SuccessRate float64
	Latency     time.Duration

	mu      sync.Mutex
	answers map[string]answer
}

type answer struct {
	result provider.Result
	err    error
}

func (g *Gateway) Name() string {
	return Name
}

func (g *Gateway) ChargeCard(ctx context.Context, amount decimal.Decimal, currency string, card payment.CardDetails, idempotencyKey string) (provider.Result, error) {
	return g.replay(ctx, idempotencyKey, func() (provider.Result, error) {
		switch card.PaymentMethodID {
		case "":
			return provider.Result{}, &provider.Error{Code: "missing_payment_method", Message: "payment method id is required"}
		case TokenVisa:
			return g.result(domainTransaction.ProviderStatusSucceeded), nil
		case TokenChargeDeclined:
			return provider.Result{}, &provider.Error{Code: "card_declined", Message: "Your card was declined."}
		case TokenAuthenticationRequired:
			return g.result(domainTransaction.ProviderStatusRequiresAction), nil
		}

		if g.succeeds() {
			return g.result(domainTransaction.ProviderStatusSucceeded), nil
		}
		return provider.Result{}, &provider.Error{Code: "card_declined", Message: "Your card was declined."}
	})
}

func (g *Gateway) ChargeBankTransfer(ctx context.Context, amount decimal.Decimal, currency string, bank payment.BankTransferDetails, idempotencyKey string) (provider.Result, error) {
	return g.replay(ctx, idempotencyKey, func() (provider.Result, error) {
		if bank.IBAN == "" {
			return provider.Result{}, &provider.Error{Code: "invalid_bank_account", Message: "iban is required"}
		}
		// SEPA debits settle later and are confirmed by webhook.
		return g.result(domainTransaction.ProviderStatusProcessing), nil
	})
}

func (g *Gateway) replay(ctx context.Context, key string, charge func() (provider.Result, error)) (provider.Result, error) {
	g.mu.Lock()
	if prev, ok := g.answers[key]; ok {
		g.mu.Unlock()
		return prev.result, prev.err
	}
	g.mu.Unlock()

	if g.Latency > 0 {
		select {
		case <-ctx.Done():
			return provider.Result{}, provider.ErrTimeout
		case <-time.After(g.Latency):
		}
	}

	result, err := charge()

	g.mu.Lock()
	defer g.mu.Unlock()
	if prev, ok := g.answers[key]; ok {
		return prev.result, prev.err
	}
	if g.answers == nil {
		g.answers = make(map[string]answer)
	}
	g.answers[key] = answer{result: result, err: err}
	return result, err
}

func (g *Gateway) result(status string) provider.Result {
	return provider.Result{ReferenceID: "pi_sandbox_" + uuid.NewString(), Status: status}
}

func (g *Gateway) succeeds() bool {
	return rand.Float64() < g.SuccessRate
}
