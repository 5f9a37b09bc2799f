package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/config"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/provider"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/transaction"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/logging"
	httpapi "github.com/rcarvalho-pb/payment-orchestrator/internal/infrastructure/http"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infrastructure/outbox"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infrastructure/persistence/inmemory"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infrastructure/persistence/sqlite"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infrastructure/provider/sandbox"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infrastructure/provider/stripe"
)

type stores struct {
	transactions transaction.Repository
	outbox       outbox.Repository
	db           *sql.DB
}

func (s stores) ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

func (s stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func openStores(ctx context.Context, cfg config.StoreConfig) (stores, error) {
	if cfg.Driver == "memory" {
		return stores{
			transactions: inmemory.NewTransactionRepository(),
			outbox:       inmemory.NewOutboxRepository(),
		}, nil
	}

	db, err := sqlite.Open(ctx, cfg.Path)
	if err != nil {
		return stores{}, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
	}
	if err := sqlite.RunMigrations(db); err != nil {
		db.Close()
		return stores{}, fmt.Errorf("migrate: %w", err)
	}

	return stores{
		transactions: sqlite.NewTransactionRepository(db),
		outbox:       outbox.NewSQLiteRepository(db),
		db:           db,
	}, nil
}

func newGateway(cfg config.ProviderConfig, logger logging.Logger) (provider.Gateway, httpapi.WebhookParser) {
	if cfg.Name == stripe.Name {
		gw := stripe.NewGateway(stripe.Config{
			SecretKey:        cfg.Stripe.SecretKey,
			WebhookSecret:    cfg.Stripe.WebhookSecret,
			MandateIPAddress: cfg.Stripe.MandateIPAddress,
			MandateUserAgent: cfg.Stripe.MandateUserAgent,
		}, logger)
		return gw, stripe.NewWebhookParser(cfg.Stripe.WebhookSecret, logger)
	}

	return &sandbox.Gateway{
		SuccessRate: cfg.Sandbox.SuccessRate,
		Latency:     cfg.Sandbox.Latency,
	}, sandbox.WebhookParser{}
}
