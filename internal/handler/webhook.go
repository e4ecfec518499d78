package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/corretoria/backend/internal/domain"
	"github.com/corretoria/backend/internal/service"
	"github.com/corretoria/backend/pkg/signature"
)

// WebhookHandler receives payment-provider notifications.
type WebhookHandler struct {
	payments  *service.PaymentService
	validator *signature.Validator
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(payments *service.PaymentService, validator *signature.Validator) *WebhookHandler {
	return &WebhookHandler{payments: payments, validator: validator}
}

// HandleNotification handles POST /api/mercadopago/webhook. The signature
// is verified before any state is touched; benign no-ops (unknown payment,
// already processed, non-payment events) are acknowledged with 200 so the
// provider does not retry them.
func (h *WebhookHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		Error(w, domain.ErrBadRequest("failed to read body"))
		return
	}

	dataID, eventKind := parseNotification(body)
	if dataID == "" {
		// Subscription/merchant-order topics and malformed bodies are
		// acknowledged without processing.
		if eventKind != "" {
			JSON(w, http.StatusOK, map[string]string{"status": "ignored", "type": eventKind})
			return
		}
		Error(w, domain.ErrBadRequest("unrecognized notification body"))
		return
	}

	sigHeader := r.Header.Get("x-signature")
	requestID := r.Header.Get("x-request-id")
	if err := h.validator.Validate(sigHeader, requestID, dataID); err != nil {
		log.Printf("[webhook] signature rejected for payment %s: %v", dataID, err)
		if errors.Is(err, signature.ErrExpiredSignature) {
			Error(w, domain.ErrUnauthorized("expired webhook signature"))
			return
		}
		Error(w, domain.ErrUnauthorized("invalid webhook signature"))
		return
	}

	outcome, err := h.payments.ProcessNotification(r.Context(), dataID)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"received": true,
		"status":   string(outcome),
	})
}

// parseNotification extracts the payment id from a v1 body, falling back to
// the legacy v0 format. Returns the event kind for non-payment events.
func parseNotification(body []byte) (dataID, eventKind string) {
	var v1 domain.WebhookNotification
	if err := json.Unmarshal(body, &v1); err == nil && v1.Data.ID != "" {
		if v1.Type != "" && v1.Type != "payment" {
			return "", v1.Type
		}
		return v1.Data.ID, "payment"
	}

	var v0 domain.LegacyWebhookNotification
	if err := json.Unmarshal(body, &v0); err == nil && v0.Topic != "" {
		if id := v0.PaymentID(); id != "" {
			return id, "payment"
		}
		return "", v0.Topic
	}
	return "", ""
}
