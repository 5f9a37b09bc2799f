package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/payment"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/provider"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/logging"
)

const Name = "stripe"

type Config struct {
	SecretKey     string
	WebhookSecret string
	// Mandate acceptance recorded on SEPA debits.
	MandateIPAddress string
	MandateUserAgent string
}

// Gateway charges through Stripe PaymentIntents. Each instance owns its own API
// client; nothing is configured globally.
type Gateway struct {
	api    *client.API
	cfg    Config
	logger logging.Logger
}

func NewGateway(cfg Config, logger logging.Logger) *Gateway {
	return &Gateway{
		api:    client.New(cfg.SecretKey, nil),
		cfg:    cfg,
		logger: logger,
	}
}

func (g *Gateway) Name() string {
	return Name
}

func (g *Gateway) ChargeCard(ctx context.Context, amount decimal.Decimal, currency string, card payment.CardDetails, idempotencyKey string) (provider.Result, error) {
	if card.PaymentMethodID == "" {
		return provider.Result{}, &provider.Error{Code: "missing_payment_method", Message: "payment method id is required"}
	}

	params := &stripego.PaymentIntentParams{
		Amount:        stripego.Int64(provider.ToMinorUnits(amount, currency)),
		Currency:      stripego.String(currency),
		PaymentMethod: stripego.String(card.PaymentMethodID),
		Confirm:       stripego.Bool(true),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripego.Bool(true),
			AllowRedirects: stripego.String("never"),
		},
		Description: stripego.String("Payment transaction"),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	return g.createIntent(ctx, params)
}

func (g *Gateway) ChargeBankTransfer(ctx context.Context, amount decimal.Decimal, currency string, bank payment.BankTransferDetails, idempotencyKey string) (provider.Result, error) {
	pmParams := &stripego.PaymentMethodParams{
		Type: stripego.String("sepa_debit"),
		SEPADebit: &stripego.PaymentMethodSEPADebitParams{
			IBAN: stripego.String(bank.IBAN),
		},
		BillingDetails: &stripego.PaymentMethodBillingDetailsParams{
			Name:  stripego.String(bank.AccountHolder),
			Email: stripego.String(bank.Email),
		},
	}
	pmParams.Context = ctx
	pmParams.SetIdempotencyKey(idempotencyKey + ":payment-method")

	pm, err := g.api.PaymentMethods.New(pmParams)
	if err != nil {
		return provider.Result{}, translateError(ctx, err)
	}

	params := &stripego.PaymentIntentParams{
		Amount:             stripego.Int64(provider.ToMinorUnits(amount, currency)),
		Currency:           stripego.String(currency),
		PaymentMethod:      stripego.String(pm.ID),
		PaymentMethodTypes: stripego.StringSlice([]string{"sepa_debit"}),
		Confirm:            stripego.Bool(true),
		MandateData: &stripego.PaymentIntentMandateDataParams{
			CustomerAcceptance: &stripego.PaymentIntentMandateDataCustomerAcceptanceParams{
				Type: stripego.String("online"),
				Online: &stripego.PaymentIntentMandateDataCustomerAcceptanceOnlineParams{
					IPAddress: stripego.String(g.cfg.MandateIPAddress),
					UserAgent: stripego.String(g.cfg.MandateUserAgent),
				},
			},
		},
		Description: stripego.String("Bank transfer payment"),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	return g.createIntent(ctx, params)
}

func (g *Gateway) createIntent(ctx context.Context, params *stripego.PaymentIntentParams) (provider.Result, error) {
	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return provider.Result{}, translateError(ctx, err)
	}

	g.logger.Info("payment intent created", map[string]any{
		"payment_intent": intent.ID,
		"status":         intent.Status,
	})

	return provider.Result{ReferenceID: intent.ID, Status: string(intent.Status)}, nil
}

// translateError maps Stripe failures onto provider errors, turning a blown
// deadline into provider.ErrTimeout.
func translateError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", provider.ErrTimeout, err)
	}

	var serr *stripego.Error
	if errors.As(err, &serr) {
		code := string(serr.Code)
		if code == "" && serr.DeclineCode != "" {
			code = string(serr.DeclineCode)
		}
		if code == "" {
			code = string(serr.Type)
		}
		return &provider.Error{Code: code, Message: serr.Msg, Err: err}
	}

	return &provider.Error{Message: err.Error(), Err: err}
}
