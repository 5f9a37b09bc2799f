package transaction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/payment"
)

// Transaction is the locally owned record of a single payment attempt.
type Transaction struct {
	ID                   string
	Amount               decimal.Decimal
	Currency             string
	PaymentMethod        payment.Method
	Status               Status
	IdempotencyKey       string
	ProviderReferenceID  string
	TransactionReference string
	Provider             string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	CreatedBy            string
	LastModifiedBy       string
	Version              int64
}

// Clone returns a copy safe to hand out of a store.
func (t *Transaction) Clone() *Transaction {
	c := *t
	return &c
}

// HasProviderReference reports whether the reference id came from the provider
// rather than being a local failure sentinel.
func (t *Transaction) HasProviderReference() bool {
	return t.ProviderReferenceID != "" && !IsSentinelReference(t.ProviderReferenceID)
}
