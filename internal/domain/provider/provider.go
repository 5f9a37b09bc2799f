package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/payment"
)

var ErrTimeout = errors.New("provider call timed out")

// Result is the synchronous answer of a charge call.
type Result struct {
	ReferenceID string
	Status      string
}

// Gateway abstracts the external payment provider. Implementations must forward
// idempotencyKey to the provider so a retried call cannot double charge.
type Gateway interface {
	Name() string
	ChargeCard(ctx context.Context, amount decimal.Decimal, currency string, card payment.CardDetails, idempotencyKey string) (Result, error)
	ChargeBankTransfer(ctx context.Context, amount decimal.Decimal, currency string, bank payment.BankTransferDetails, idempotencyKey string) (Result, error)
}

// Error is a failed provider call that carries the provider's error code.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code == "" {
		return "provider error: " + msg
	}
	return "provider error " + e.Code + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode extracts the provider error code from err, or "".
func ErrorCode(err error) string {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Code
	}
	return ""
}

var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {}, "krw": {}, "mga": {},
	"pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// MinorUnitDigits is the number of decimal places the currency's minor unit
// allows.
func MinorUnitDigits(currency string) int32 {
	if _, ok := zeroDecimalCurrencies[strings.ToLower(strings.TrimSpace(currency))]; ok {
		return 0
	}
	return 2
}

// ToMinorUnits converts a major-unit amount to the integer minor units providers
// expect. Amounts finer than MinorUnitDigits are rejected before they get here.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(MinorUnitDigits(currency)).Truncate(0).IntPart()
}
