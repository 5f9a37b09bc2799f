package payment_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/payment"
)

func TestDetails_ShouldDecodeCardVariant(t *testing.T) {
	var req payment.Request
	body := `{"amount":"100.00","currency":"USD","paymentMethod":"CREDIT_CARD",
		"details":{"type":"CREDIT_CARD","paymentMethodId":"pm_card_visa","cardHolder":"Ada"}}`

	require.NoError(t, json.Unmarshal([]byte(body), &req))

	card, ok := req.Details.AsCard()
	require.True(t, ok)
	require.Equal(t, "pm_card_visa", card.PaymentMethodID)

	_, ok = req.Details.AsBankTransfer()
	require.False(t, ok)
}

func TestDetails_ShouldDecodeBankVariant(t *testing.T) {
	var d payment.Details
	require.NoError(t, json.Unmarshal([]byte(`{"type":"BANK_TRANSFER","iban":"DE89370400440532013000","accountHolder":"Ada","email":"ada@example.com"}`), &d))

	bank, ok := d.AsBankTransfer()
	require.True(t, ok)
	require.Equal(t, "DE89370400440532013000", bank.IBAN)
}

func TestDetails_ShouldRejectUnknownType(t *testing.T) {
	var d payment.Details
	err := json.Unmarshal([]byte(`{"type":"CRYPTO"}`), &d)
	require.ErrorIs(t, err, payment.ErrUnknownDetailsType)
}

func TestDetails_ShouldEncodeFlatObjectWithDiscriminator(t *testing.T) {
	raw, err := json.Marshal(payment.NewCardDetails(payment.CardDetails{PaymentMethodID: "pm_card_visa"}))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"CREDIT_CARD","paymentMethodId":"pm_card_visa"}`, string(raw))
}

func TestMethod_Valid(t *testing.T) {
	require.True(t, payment.MethodCreditCard.Valid())
	require.True(t, payment.MethodBankTransfer.Valid())
	require.False(t, payment.Method("PAYPAL").Valid())
}
