package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/logging"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/metrics"
)

type RouterConfig struct {
	Payments *PaymentHandler
	Webhooks *WebhookHandler
	Health   *HealthHandler
	Logger   logging.Logger
	// Optional.
	Metrics     *metrics.Counters
	RateLimiter *RateLimiter
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", cfg.Health.Health)
	if cfg.Metrics != nil {
		r.Get("/metrics", metricsHandler(cfg.Metrics))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/payments", func(r chi.Router) {
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Middleware)
			}
			r.Post("/", cfg.Payments.Initiate)
			r.Get("/", cfg.Payments.List)
			r.Get("/{id}", cfg.Payments.Get)
		})

		// provider deliveries are not rate limited
		r.Post("/webhooks/payment", cfg.Webhooks.Handle)
	})

	return r
}
