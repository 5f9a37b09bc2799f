package webhook_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/application/payment"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/application/transaction"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/application/webhook"
	domainPayment "github.com/rcarvalho-pb/payment-orchestrator/internal/domain/payment"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/provider"
	domainTransaction "github.com/rcarvalho-pb/payment-orchestrator/internal/domain/transaction"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/logging"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/metrics"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infrastructure/persistence/inmemory"
)

type logEntry struct {
	level string
	msg   string
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *recordingLogger) Info(msg string, _ map[string]any)  { l.add("info", msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]any)  { l.add("warn", msg) }
func (l *recordingLogger) Error(msg string, _ map[string]any) { l.add("error", msg) }

func (l *recordingLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

type panickingManager struct{}

func (panickingManager) FindByProviderReferenceID(context.Context, string) (*domainTransaction.Transaction, error) {
	panic("store exploded")
}

func (panickingManager) UpdateStatus(context.Context, string, domainTransaction.Status, string) (*domainTransaction.Transaction, error) {
	return nil, nil
}

type fixture struct {
	repo       *inmemory.TransactionRepository
	lifecycle  *transaction.Service
	reconciler *webhook.Reconciler
	logger     *recordingLogger
	metrics    *metrics.Counters
}

func newFixture() *fixture {
	repo := inmemory.NewTransactionRepository()
	logger := &recordingLogger{}
	counters := &metrics.Counters{}
	lifecycle := &transaction.Service{Repo: repo, Logger: logging.Nop{}}
	return &fixture{
		repo:       repo,
		lifecycle:  lifecycle,
		logger:     logger,
		metrics:    counters,
		reconciler: &webhook.Reconciler{Transactions: lifecycle, Logger: logger, Metrics: counters},
	}
}

// seed stores a transaction already carrying a provider reference.
func (f *fixture) seed(t *testing.T, ref string, status domainTransaction.Status) *domainTransaction.Transaction {
	t.Helper()
	ctx := context.Background()

	tx, err := f.lifecycle.Create(ctx, &domainTransaction.Transaction{
		Amount:         decimal.RequireFromString("100.00"),
		Currency:       "usd",
		PaymentMethod:  domainPayment.MethodCreditCard,
		IdempotencyKey: "key-" + ref,
		Provider:       "fake",
	}, "SYSTEM")
	require.NoError(t, err)

	tx, err = f.lifecycle.Update(ctx, tx.ID, "SYSTEM", func(cur *domainTransaction.Transaction) error {
		cur.ProviderReferenceID = ref
		_, err := cur.TransitionTo(status)
		return err
	})
	require.NoError(t, err)
	return tx
}

func (f *fixture) status(t *testing.T, id string) *domainTransaction.Transaction {
	t.Helper()
	tx, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return tx
}

func TestApply_ShouldCompletePendingTransaction_WhenPaymentSucceeded(t *testing.T) {
	f := newFixture()
	tx := f.seed(t, "pi_1", domainTransaction.StatusPending)

	f.reconciler.Apply(context.Background(), webhook.Event{ID: "evt_1", Kind: webhook.KindSucceeded, ProviderReferenceID: "pi_1"})

	stored := f.status(t, tx.ID)
	require.Equal(t, domainTransaction.StatusCompleted, stored.Status)
	require.Equal(t, webhook.ActorWebhook, stored.LastModifiedBy)
}

func TestApply_ShouldBeIdempotent_WhenSameSuccessDeliveredTwice(t *testing.T) {
	f := newFixture()
	tx := f.seed(t, "pi_1", domainTransaction.StatusPending)
	evt := webhook.Event{ID: "evt_1", Kind: webhook.KindSucceeded, ProviderReferenceID: "pi_1"}

	f.reconciler.Apply(context.Background(), evt)
	first := f.status(t, tx.ID)

	f.reconciler.Apply(context.Background(), evt)
	second := f.status(t, tx.ID)

	require.Equal(t, domainTransaction.StatusCompleted, second.Status)
	require.Equal(t, first.Version, second.Version)
	require.Equal(t, first.UpdatedAt, second.UpdatedAt)
	require.Equal(t, uint64(2), f.metrics.Snapshot().WebhooksReceived)
}

func TestApply_ShouldFailPendingTransaction_WhenPaymentFailedOrCanceled(t *testing.T) {
	for _, kind := range []webhook.Kind{webhook.KindFailed, webhook.KindCanceled} {
		t.Run(string(kind), func(t *testing.T) {
			f := newFixture()
			tx := f.seed(t, "pi_1", domainTransaction.StatusPending)

			f.reconciler.Apply(context.Background(), webhook.Event{Kind: kind, ProviderReferenceID: "pi_1"})

			require.Equal(t, domainTransaction.StatusFailed, f.status(t, tx.ID).Status)
		})
	}
}

func TestApply_ShouldIgnoreContradictingEvent_WhenTransactionTerminal(t *testing.T) {
	f := newFixture()
	tx := f.seed(t, "pi_1", domainTransaction.StatusCompleted)

	f.reconciler.Apply(context.Background(), webhook.Event{Kind: webhook.KindFailed, ProviderReferenceID: "pi_1"})

	stored := f.status(t, tx.ID)
	require.Equal(t, domainTransaction.StatusCompleted, stored.Status)
	require.Equal(t, "SYSTEM", stored.LastModifiedBy)
	require.True(t, f.logger.has("warn", "contradicting webhook ignored, transaction already terminal"))
	require.Equal(t, uint64(1), f.metrics.Snapshot().WebhooksIgnored)
}

func TestApply_ShouldNotPanic_WhenReferenceUnknown(t *testing.T) {
	f := newFixture()

	require.NotPanics(t, func() {
		f.reconciler.Apply(context.Background(), webhook.Event{Kind: webhook.KindSucceeded, ProviderReferenceID: "pi_missing"})
	})
	require.True(t, f.logger.has("warn", "no transaction for provider reference"))
	require.Equal(t, 0, f.repo.Len())
}

func TestApply_ShouldIgnoreSentinelReferences(t *testing.T) {
	f := newFixture()

	f.reconciler.Apply(context.Background(), webhook.Event{Kind: webhook.KindSucceeded, ProviderReferenceID: domainTransaction.ReferenceProviderTimeout})
	f.reconciler.Apply(context.Background(), webhook.Event{Kind: webhook.KindSucceeded})

	require.Equal(t, uint64(2), f.metrics.Snapshot().WebhooksIgnored)
}

func TestApply_ShouldOnlyLog_WhenProcessingRefundOrUnknown(t *testing.T) {
	f := newFixture()
	tx := f.seed(t, "pi_1", domainTransaction.StatusPending)
	before := f.status(t, tx.ID)

	for _, kind := range []webhook.Kind{webhook.KindProcessing, webhook.KindRefunded, webhook.KindUnknown} {
		f.reconciler.Apply(context.Background(), webhook.Event{Kind: kind, ProviderReferenceID: "pi_1"})
	}

	after := f.status(t, tx.ID)
	require.Equal(t, before.Version, after.Version)
	require.Equal(t, domainTransaction.StatusPending, after.Status)
	require.True(t, f.logger.has("info", "payment still processing"))
	require.True(t, f.logger.has("info", "refund notification ignored"))
	require.True(t, f.logger.has("info", "unhandled webhook event"))
}

func TestApply_ShouldRecover_WhenManagerPanics(t *testing.T) {
	logger := &recordingLogger{}
	r := &webhook.Reconciler{Transactions: panickingManager{}, Logger: logger, Metrics: &metrics.Counters{}}

	require.NotPanics(t, func() {
		r.Apply(context.Background(), webhook.Event{Kind: webhook.KindSucceeded, ProviderReferenceID: "pi_1"})
	})
	require.True(t, logger.has("error", "webhook reconciliation panicked"))
}

type succeedingGateway struct{}

func (succeedingGateway) Name() string { return "fake" }

func (succeedingGateway) ChargeCard(_ context.Context, _ decimal.Decimal, _ string, _ domainPayment.CardDetails, key string) (provider.Result, error) {
	return provider.Result{ReferenceID: "pi_" + key, Status: "succeeded"}, nil
}

func (succeedingGateway) ChargeBankTransfer(_ context.Context, _ decimal.Decimal, _ string, _ domainPayment.BankTransferDetails, key string) (provider.Result, error) {
	return provider.Result{ReferenceID: "pi_" + key, Status: "processing"}, nil
}

// A failure notification arriving after the synchronous path completed the
// payment must not reopen it: terminal states are sticky.
func TestEndToEnd_ShouldKeepCompleted_WhenLateFailureWebhookArrives(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	orchestrator := &payment.Service{
		Transactions: f.lifecycle,
		Gateway:      succeedingGateway{},
		Logger:       logging.Nop{},
		Metrics:      f.metrics,
	}

	view, err := orchestrator.Initiate(ctx, domainPayment.Request{
		Amount:        decimal.RequireFromString("100.00"),
		Currency:      "USD",
		PaymentMethod: domainPayment.MethodCreditCard,
		Details: domainPayment.NewCardDetails(domainPayment.CardDetails{
			PaymentMethodID: "pm_card_visa",
			CardHolder:      "Ada Lovelace",
			ExpiryMonth:     "12",
			ExpiryYear:      "2030",
		}),
	}, "K1", "SYSTEM")
	require.NoError(t, err)

	require.Equal(t, domainTransaction.StatusCompleted, view.Status)
	require.Equal(t, "usd", view.Currency)
	require.NotEmpty(t, view.Provider)
	require.NotEmpty(t, view.ProviderReferenceID)

	f.reconciler.Apply(ctx, webhook.Event{ID: "evt_late", Kind: webhook.KindFailed, ProviderReferenceID: view.ProviderReferenceID})

	after, err := orchestrator.GetByID(ctx, view.TransactionID)
	require.NoError(t, err)
	require.Equal(t, domainTransaction.StatusCompleted, after.Status)
}

func TestEndToEnd_ShouldCompleteBankTransfer_WhenSuccessWebhookArrives(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	orchestrator := &payment.Service{
		Transactions: f.lifecycle,
		Gateway:      succeedingGateway{},
		Logger:       logging.Nop{},
		Metrics:      f.metrics,
	}

	view, err := orchestrator.Initiate(ctx, domainPayment.Request{
		Amount:        decimal.RequireFromString("75.00"),
		Currency:      "EUR",
		PaymentMethod: domainPayment.MethodBankTransfer,
		Details: domainPayment.NewBankTransferDetails(domainPayment.BankTransferDetails{
			IBAN:          "DE89370400440532013000",
			AccountHolder: "Ada Lovelace",
			Email:         "ada@example.com",
		}),
	}, "K2", "SYSTEM")
	require.NoError(t, err)
	require.Equal(t, domainTransaction.StatusPending, view.Status)

	f.reconciler.Apply(ctx, webhook.Event{Kind: webhook.KindSucceeded, ProviderReferenceID: view.ProviderReferenceID})

	after, err := orchestrator.GetByID(ctx, view.TransactionID)
	require.NoError(t, err)
	require.Equal(t, domainTransaction.StatusCompleted, after.Status)
}
