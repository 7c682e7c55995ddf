package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/EcommerceGo/storefront/internal/alert"
	"github.com/utafrali/EcommerceGo/storefront/internal/checkout"
	"github.com/utafrali/EcommerceGo/storefront/internal/delivery"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/payment"
	"github.com/utafrali/EcommerceGo/storefront/internal/payment/bridge"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/httputil"
	"github.com/utafrali/EcommerceGo/storefront/pkg/validator"
)

// CheckoutHandler handles quoting, paying, alerts and the payment sheet
// bridge.
type CheckoutHandler struct {
	checkout *checkout.Service
	payments *payment.Orchestrator
	sheet    *bridge.Sheet
	alerts   *alert.Channel
	logger   *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler. sheet may be nil
// when payments run against a scripted sheet.
func NewCheckoutHandler(
	svc *checkout.Service,
	payments *payment.Orchestrator,
	sheet *bridge.Sheet,
	alerts *alert.Channel,
	logger *slog.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: svc,
		payments: payments,
		sheet:    sheet,
		alerts:   alerts,
		logger:   logger,
	}
}

// --- Request / response DTOs ---

// PayResponse is the outcome of one payment attempt.
type PayResponse struct {
	payment.Result
	FinalizeWarning string `json:"finalizeWarning,omitempty"`
}

// PaymentStatusResponse describes the orchestrator's current state.
type PaymentStatusResponse struct {
	State   domain.PaymentState    `json:"state"`
	Attempt *domain.PaymentAttempt `json:"attempt,omitempty"`
}

// ResolveSheetRequest is the shell's answer to a pending sheet request. An
// empty code means the provider call succeeded.
type ResolveSheetRequest struct {
	Code    string `json:"code,omitempty" validate:"omitempty,oneof=Canceled Failed Timeout"`
	Message string `json:"message,omitempty" validate:"max=500"`
}

// --- Handlers ---

// Quote handles POST /api/v1/checkout/quote
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var sel *delivery.Selection
	var body delivery.Selection
	switch err := decodeJSON(w, r, &body); {
	case err == nil:
		sel = &body
	case errors.Is(err, validator.ErrEmptyBody):
	default:
		httputil.WriteValidationError(w, err)
		return
	}

	priced, err := h.checkout.Quote(r.Context(), sel)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, priced)
}

// Pay handles POST /api/v1/checkout/pay. The request stays open until the
// attempt reaches a terminal state.
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var opts checkout.PayOptions
	if err := decodeJSON(w, r, &opts); err != nil && !errors.Is(err, validator.ErrEmptyBody) {
		httputil.WriteValidationError(w, err)
		return
	}

	res, err := h.checkout.Pay(r.Context(), opts)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	resp := PayResponse{Result: res}
	if res.FinalizeErr != nil {
		resp.FinalizeWarning = apperrors.UserMessage(res.FinalizeErr)
	}
	httputil.WriteData(w, http.StatusOK, resp)
}

// PaymentStatus handles GET /api/v1/payment
func (h *CheckoutHandler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	resp := PaymentStatusResponse{State: h.payments.State()}
	if attempt, ok := h.payments.Attempt(); ok {
		resp.Attempt = &attempt
	}
	httputil.WriteData(w, http.StatusOK, resp)
}

// PendingSheet handles GET /api/v1/payment/sheet
func (h *CheckoutHandler) PendingSheet(w http.ResponseWriter, r *http.Request) {
	req, ok := h.sheet.Pending()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httputil.WriteData(w, http.StatusOK, req)
}

// ResolveSheet handles POST /api/v1/payment/sheet/{requestId}
func (h *CheckoutHandler) ResolveSheet(w http.ResponseWriter, r *http.Request) {
	var req ResolveSheetRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, validator.ErrEmptyBody) {
		httputil.WriteValidationError(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if req.Message != "" && req.Code == "" {
		req.Code = payment.CodeFailed
	}

	var perr *payment.ProviderError
	if req.Code != "" {
		perr = &payment.ProviderError{Code: req.Code, Message: req.Message}
	}

	id := chi.URLParam(r, "requestId")
	if err := h.sheet.Resolve(id, perr); err != nil {
		if errors.Is(err, bridge.ErrUnknownRequest) {
			err = apperrors.NotFound("sheet request", id)
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DrainAlerts handles GET /api/v1/alerts
func (h *CheckoutHandler) DrainAlerts(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.alerts.Drain())
}
