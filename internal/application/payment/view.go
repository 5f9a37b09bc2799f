package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/payment"
	domainTransaction "github.com/rcarvalho-pb/payment-orchestrator/internal/domain/transaction"
)

// View is the client-facing projection of a transaction.
type View struct {
	TransactionID        string                   `json:"transactionId"`
	TransactionReference string                   `json:"transactionReference"`
	Amount               decimal.Decimal          `json:"amount"`
	Currency             string                   `json:"currency"`
	Status               domainTransaction.Status `json:"status"`
	PaymentMethod        payment.Method           `json:"paymentMethod"`
	CreatedAt            time.Time                `json:"createdAt"`
	Provider             string                   `json:"provider"`
	ProviderReferenceID  string                   `json:"providerReferenceId,omitempty"`
}

func NewView(tx *domainTransaction.Transaction) View {
	return View{
		TransactionID:        tx.ID,
		TransactionReference: tx.TransactionReference,
		Amount:               tx.Amount,
		Currency:             tx.Currency,
		Status:               tx.Status,
		PaymentMethod:        tx.PaymentMethod,
		CreatedAt:            tx.CreatedAt,
		Provider:             tx.Provider,
		ProviderReferenceID:  tx.ProviderReferenceID,
	}
}
