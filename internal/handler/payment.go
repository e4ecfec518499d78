package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/corretoria/backend/internal/contextkeys"
	"github.com/corretoria/backend/internal/domain"
	"github.com/corretoria/backend/internal/service"
	"github.com/go-chi/chi/v5"
)

// PaymentHandler handles the PIX checkout and reconciliation endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
	linker   *service.LinkerService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService, linker *service.LinkerService) *PaymentHandler {
	return &PaymentHandler{payments: payments, linker: linker}
}

// CreatePix handles POST /api/mercadopago/create-pix-payment. Works for
// guests and authenticated users; an authenticated caller's payment is
// linked to them from the start.
func (h *PaymentHandler) CreatePix(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePixPaymentRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	var userID *string
	if id, ok := r.Context().Value(contextkeys.UserID).(string); ok && id != "" {
		userID = &id
	}

	resp, err := h.payments.CreatePix(r.Context(), &req, userID)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, resp)
}

// Status handles GET /api/mercadopago/payment-status/{id}.
func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		Error(w, domain.ErrBadRequest("missing payment id"))
		return
	}

	resp, err := h.payments.Status(r.Context(), id)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// activateRequest tolerates both string and numeric payment ids, since the
// provider reports numeric ids and older clients forward them unquoted.
type activateRequest struct {
	PaymentID json.RawMessage `json:"paymentId"`
}

func (req *activateRequest) id() string {
	if len(req.PaymentID) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(req.PaymentID, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(req.PaymentID, &n); err == nil {
		return n.String()
	}
	return ""
}

// ManualActivate handles POST /api/mercadopago/activate-pix-payment, the
// client-triggered fallback when the webhook is delayed.
func (h *PaymentHandler) ManualActivate(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		Error(w, domain.ErrUnauthorized("authentication required"))
		return
	}

	var req activateRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}
	paymentID := req.id()
	if paymentID == "" {
		Error(w, domain.ErrBadRequest("missing paymentId"))
		return
	}

	result, err := h.payments.ManualActivate(r.Context(), userID, paymentID)
	if err != nil {
		Error(w, err)
		return
	}

	resp := map[string]interface{}{
		"activated": !result.AlreadyActive,
		"planType":  result.PlanType,
	}
	if result.Subscription != nil {
		resp["subscriptionId"] = result.Subscription.ID
		resp["expiresAt"] = result.Subscription.NextPaymentDate
	}
	if !result.ExpiresAt.IsZero() {
		resp["expiresAt"] = result.ExpiresAt
	}
	JSON(w, http.StatusOK, resp)
}

// ListGuestPayments handles GET /api/mercadopago/link-guest-payment:
// discovery without side effects.
func (h *PaymentHandler) ListGuestPayments(w http.ResponseWriter, r *http.Request) {
	email, ok := r.Context().Value(contextkeys.UserEmail).(string)
	if !ok || email == "" {
		Error(w, domain.ErrUnauthorized("authentication required"))
		return
	}

	payments, err := h.linker.FindUnlinked(r.Context(), email)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"hasPendingPayments": len(payments) > 0,
		"count":              len(payments),
		"payments":           paymentSummaries(payments),
	})
}

// LinkGuestPayment handles POST /api/mercadopago/link-guest-payment.
func (h *PaymentHandler) LinkGuestPayment(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(contextkeys.UserID).(string)
	email, _ := r.Context().Value(contextkeys.UserEmail).(string)
	if userID == "" || email == "" {
		Error(w, domain.ErrUnauthorized("authentication required"))
		return
	}

	result, err := h.linker.LinkLatest(r.Context(), userID, email)
	if err != nil {
		Error(w, err)
		return
	}

	resp := map[string]interface{}{
		"linked":  result.Linked,
		"message": result.Message,
	}
	if result.Payment != nil {
		resp["payments"] = paymentSummaries([]*domain.PixPayment{result.Payment})
	}
	JSON(w, http.StatusOK, resp)
}

// paymentSummaries strips internal fields for API responses.
func paymentSummaries(payments []*domain.PixPayment) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(payments))
	for _, p := range payments {
		out = append(out, map[string]interface{}{
			"paymentId": p.PaymentIntentID,
			"planType":  p.PlanType,
			"amount":    fmt.Sprintf("%.2f", float64(p.Amount)/100),
			"status":    p.Status,
			"paidAt":    p.PaidAt,
		})
	}
	return out
}
