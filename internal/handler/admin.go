package handler

import (
	"log"
	"net/http"

	"github.com/corretoria/backend/internal/domain"
	"github.com/corretoria/backend/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminHandler exposes operational endpoints gated behind the admin role.
type AdminHandler struct {
	db       *pgxpool.Pool
	payments *repository.PaymentRepository
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *pgxpool.Pool, payments *repository.PaymentRepository) *AdminHandler {
	return &AdminHandler{db: db, payments: payments}
}

// GetStats returns system-wide counts for the admin dashboard.
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	var usersCount, paymentsCount, consumedCount, subCount int

	if err := h.db.QueryRow(r.Context(), "SELECT COUNT(*) FROM users").Scan(&usersCount); err != nil {
		log.Printf("Failed to count users: %v", err)
	}
	if err := h.db.QueryRow(r.Context(), "SELECT COUNT(*) FROM pix_payments").Scan(&paymentsCount); err != nil {
		log.Printf("Failed to count payments: %v", err)
	}
	if err := h.db.QueryRow(r.Context(), "SELECT COUNT(*) FROM pix_payments WHERE status = 'consumed'").Scan(&consumedCount); err != nil {
		log.Printf("Failed to count consumed payments: %v", err)
	}
	if err := h.db.QueryRow(r.Context(), "SELECT COUNT(*) FROM subscriptions WHERE status IN ('authorized', 'active')").Scan(&subCount); err != nil {
		log.Printf("Failed to count subscriptions: %v", err)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"users":            usersCount,
		"payments":         paymentsCount,
		"consumedPayments": consumedCount,
		"subscriptions":    subCount,
	})
}

// ResetTestPayment handles POST /api/admin/reset-test-payment. It reverts a
// payment to an unlinked approved state so the linking flow can be
// re-exercised against a sandbox payment.
func (h *AdminHandler) ResetTestPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentIntentID string `json:"paymentIntentId"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}
	if req.PaymentIntentID == "" {
		Error(w, domain.ErrBadRequest("missing paymentIntentId"))
		return
	}

	reset, err := h.payments.Reset(r.Context(), req.PaymentIntentID)
	if err != nil {
		Error(w, domain.ErrInternal("failed to reset payment", err))
		return
	}
	if !reset {
		Error(w, domain.ErrNotFound("payment not found"))
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"reset": true})
}
