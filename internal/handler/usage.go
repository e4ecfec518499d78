package handler

import (
	"net"
	"net/http"
	"strings"

	"github.com/corretoria/backend/internal/contextkeys"
	"github.com/corretoria/backend/internal/domain"
	"github.com/corretoria/backend/internal/service"
)

// UsageHandler exposes the quota tracker to the correction endpoints.
type UsageHandler struct {
	quota *service.QuotaService
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(quota *service.QuotaService) *UsageHandler {
	return &UsageHandler{quota: quota}
}

// Remaining handles GET /api/usage for authenticated users.
func (h *UsageHandler) Remaining(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		Error(w, domain.ErrUnauthorized("authentication required"))
		return
	}

	usage, err := h.quota.Remaining(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, usage)
}

// Consume handles POST /api/usage/consume. Authenticated callers are gated
// by plan limits; guests by IP-keyed daily and monthly ceilings.
func (h *UsageHandler) Consume(w http.ResponseWriter, r *http.Request) {
	var req domain.ConsumeUsageRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}
	op := domain.OperationType(req.Operation)
	if !domain.ValidOperation(op) {
		Error(w, domain.ErrBadRequest("unknown operation type"))
		return
	}

	var status *domain.UsageStatus
	var err error
	if userID, ok := r.Context().Value(contextkeys.UserID).(string); ok && userID != "" {
		status, err = h.quota.CheckAndConsume(r.Context(), userID, op, req.Characters)
	} else {
		status, err = h.quota.CheckAndConsumeGuest(r.Context(), clientIP(r), op)
	}
	if err != nil {
		Error(w, err)
		return
	}

	code := http.StatusOK
	if !status.Allowed {
		code = http.StatusTooManyRequests
	}
	JSON(w, code, status)
}

// clientIP returns the caller's IP, preferring proxy headers. Must agree
// with the rate-limit middleware so burst limiting and quota counting key
// on the same address.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		return strings.TrimSpace(parts[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
