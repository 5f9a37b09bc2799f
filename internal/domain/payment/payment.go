package payment

import "github.com/shopspring/decimal"

type Method string

const (
	MethodCreditCard   Method = "CREDIT_CARD"
	MethodBankTransfer Method = "BANK_TRANSFER"
)

func (m Method) Valid() bool {
	return m == MethodCreditCard || m == MethodBankTransfer
}

// Request is a validated payment initiation as delivered by the transport layer.
type Request struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod Method          `json:"paymentMethod"`
	Details       Details         `json:"details"`
}
