package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/metrics"
)

type HealthHandler struct {
	// Check probes the store; nil means nothing to probe.
	Check func(ctx context.Context) error
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Check != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.Check(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func metricsHandler(counters *metrics.Counters) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, counters.Snapshot())
	}
}
