package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/application/payment"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/application/transaction"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/application/webhook"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/config"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/event"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/logging"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/metrics"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infrastructure/eventbus"
	httpapi "github.com/rcarvalho-pb/payment-orchestrator/internal/infrastructure/http"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infrastructure/outbox"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the outbox dispatcher",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logging.NewZapLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, err := openStores(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	counters := &metrics.Counters{}
	bus := eventbus.NewInMemoryBus()
	bus.Subscribe(event.TransactionCompleted, counters.HandleEvent)
	bus.Subscribe(event.TransactionFailed, counters.HandleEvent)

	lifecycle := &transaction.Service{
		Repo:     st.transactions,
		Recorder: &outbox.Recorder{Repo: st.outbox},
		Logger:   logger,
	}

	gateway, parser := newGateway(cfg.Provider, logger)

	orchestrator := &payment.Service{
		Transactions:    lifecycle,
		Gateway:         gateway,
		Logger:          logger,
		Metrics:         counters,
		ProviderTimeout: cfg.Provider.Timeout,
	}

	reconciler := &webhook.Reconciler{
		Transactions: lifecycle,
		Logger:       logger,
		Metrics:      counters,
	}

	dispatcher := &outbox.Dispatcher{
		Repo:         st.outbox,
		EventBus:     bus,
		Logger:       logger,
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		Backoff:      outbox.Backoff{Base: cfg.Outbox.BackoffBase, Max: cfg.Outbox.BackoffMax},
	}

	routerCfg := httpapi.RouterConfig{
		Payments: &httpapi.PaymentHandler{Service: orchestrator, Logger: logger, Actor: cfg.SystemActor},
		Webhooks: &httpapi.WebhookHandler{
			Parser:     parser,
			Reconciler: reconciler,
			Logger:     logger,
			MaxBytes:   cfg.HTTP.MaxWebhookBytes,
		},
		Health: &httpapi.HealthHandler{Check: st.ping},
		Logger: logger,
	}
	if cfg.HTTP.MetricsEnabled {
		routerCfg.Metrics = counters
	}

	var wg sync.WaitGroup

	if cfg.HTTP.RateLimit > 0 {
		limiter := httpapi.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst)
		routerCfg.RateLimiter = limiter
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiter.Run(ctx, 5*time.Minute, 30*time.Minute)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      httpapi.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", map[string]any{
			"addr":     cfg.HTTP.Addr,
			"provider": gateway.Name(),
			"store":    cfg.Store.Driver,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		stop()
		wg.Wait()
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	wg.Wait()

	// flush whatever the last requests recorded
	dispatcher.DispatchOnce(shutdownCtx)

	return err
}
