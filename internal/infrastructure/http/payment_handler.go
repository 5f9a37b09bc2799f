package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	appPayment "github.com/rcarvalho-pb/payment-orchestrator/internal/application/payment"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/payment"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/domain/transaction"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infra/logging"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	maxPaymentBodyBytes  = 1 << 20
)

type PaymentService interface {
	Initiate(ctx context.Context, req payment.Request, idempotencyKey, actor string) (appPayment.View, error)
	GetByID(ctx context.Context, id string) (appPayment.View, error)
	List(ctx context.Context, params appPayment.ListParams) ([]appPayment.View, error)
}

type PaymentHandler struct {
	Service PaymentService
	Logger  logging.Logger
	// Actor is recorded as creator of transactions initiated over HTTP.
	Actor string
}

func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPaymentBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "request body too large or unreadable")
		return
	}

	if err := validateJSONSchema(paymentRequestLoader, body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req payment.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// detached so a client hanging up cannot strand a half-settled payment
	ctx := context.WithoutCancel(r.Context())

	view, err := h.Service.Initiate(ctx, req, r.Header.Get(IdempotencyKeyHeader), h.Actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := appPayment.ListParams{
		Status:    q.Get("status"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	}

	var err error
	if params.MinAmount, err = parseAmount(q.Get("minAmount")); err != nil {
		writeError(w, http.StatusBadRequest, "minAmount must be a decimal number")
		return
	}
	if params.MaxAmount, err = parseAmount(q.Get("maxAmount")); err != nil {
		writeError(w, http.StatusBadRequest, "maxAmount must be a decimal number")
		return
	}

	views, err := h.Service.List(r.Context(), params)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *PaymentHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, appPayment.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, transaction.ErrNotFound):
		writeError(w, http.StatusNotFound, "transaction not found")
	default:
		h.Logger.Error("payment request failed", map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"error":  err,
		})
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseAmount(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
