package sandbox_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/application/webhook"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/payment"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/provider"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infrastructure/provider/sandbox"
)

var ten = decimal.RequireFromString("10.00")

func card(token string) payment.CardDetails {
	return payment.CardDetails{PaymentMethodID: token}
}

func TestChargeCard_ShouldFollowTestTokens(t *testing.T) {
	g := &sandbox.Gateway{}
	ctx := context.Background()

	res, err := g.ChargeCard(ctx, ten, "usd", card(sandbox.TokenVisa), "K1")
	require.NoError(t, err)
	require.Equal(t, "succeeded", res.Status)
	require.True(t, strings.HasPrefix(res.ReferenceID, "pi_sandbox_"))

	res, err = g.ChargeCard(ctx, ten, "usd", card(sandbox.TokenAuthenticationRequired), "K2")
	require.NoError(t, err)
	require.Equal(t, "requires_action", res.Status)

	_, err = g.ChargeCard(ctx, ten, "usd", card(sandbox.TokenChargeDeclined), "K3")
	require.Equal(t, "card_declined", provider.ErrorCode(err))
}

func TestChargeCard_ShouldUseSuccessRate_WhenTokenUnknown(t *testing.T) {
	ctx := context.Background()

	always := &sandbox.Gateway{SuccessRate: 1}
	res, err := always.ChargeCard(ctx, ten, "usd", card("pm_custom"), "K1")
	require.NoError(t, err)
	require.Equal(t, "succeeded", res.Status)

	never := &sandbox.Gateway{SuccessRate: 0}
	_, err = never.ChargeCard(ctx, ten, "usd", card("pm_custom"), "K1")
	require.Error(t, err)
}

func TestCharge_ShouldReplayFirstAnswer_WhenKeyRepeated(t *testing.T) {
	g := &sandbox.Gateway{}
	ctx := context.Background()

	first, err := g.ChargeCard(ctx, ten, "usd", card(sandbox.TokenVisa), "K1")
	require.NoError(t, err)
	second, err := g.ChargeCard(ctx, ten, "usd", card(sandbox.TokenChargeDeclined), "K1")
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestChargeBankTransfer_ShouldReportProcessing(t *testing.T) {
	g := &sandbox.Gateway{}

	res, err := g.ChargeBankTransfer(context.Background(), ten, "eur", payment.BankTransferDetails{IBAN: "DE89370400440532013000"}, "K1")
	require.NoError(t, err)
	require.Equal(t, "processing", res.Status)
}

func TestCharge_ShouldTimeOut_WhenSlowerThanContext(t *testing.T) {
	g := &sandbox.Gateway{Latency: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := g.ChargeCard(ctx, ten, "usd", card(sandbox.TokenVisa), "K1")
	require.ErrorIs(t, err, provider.ErrTimeout)
}

func TestWebhookParser(t *testing.T) {
	var p sandbox.WebhookParser

	evt, err := p.Parse([]byte(`{"id":"evt_1","type":"payment.failed","referenceId":"pi_sandbox_1"}`), "")
	require.NoError(t, err)
	require.Equal(t, webhook.KindFailed, evt.Kind)
	require.Equal(t, "pi_sandbox_1", evt.ProviderReferenceID)

	evt, err = p.Parse([]byte(`{"type":"payout.paid"}`), "")
	require.NoError(t, err)
	require.Equal(t, webhook.KindUnknown, evt.Kind)

	_, err = p.Parse([]byte(`{}`), "")
	require.ErrorIs(t, err, sandbox.ErrInvalidPayload)
}
