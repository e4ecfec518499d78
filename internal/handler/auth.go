package handler

import (
	"log"
	"net/http"

	"github.com/corretoria/backend/internal/contextkeys"
	"github.com/corretoria/backend/internal/domain"
	"github.com/corretoria/backend/internal/service"
)

// AuthHandler handles authentication HTTP endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	linker *service.LinkerService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, linker *service.LinkerService) *AuthHandler {
	return &AuthHandler{auth: auth, linker: linker}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.auth.Register(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}

	h.linkGuestPayments(r, resp.User.ID, resp.User.Email)
	JSON(w, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login. A successful login triggers the
// guest-payment linker for the verified email.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		Error(w, err)
		return
	}

	h.linkGuestPayments(r, resp.User.ID, resp.User.Email)
	JSON(w, http.StatusOK, resp)
}

// Me handles GET /api/auth/me, returning the entitlement profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		Error(w, domain.ErrUnauthorized("authentication required"))
		return
	}

	profile, err := h.auth.Profile(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, profile)
}

// linkGuestPayments runs the linker best-effort: a linking failure must
// never fail the login itself.
func (h *AuthHandler) linkGuestPayments(r *http.Request, userID, email string) {
	result, err := h.linker.LinkLatest(r.Context(), userID, email)
	if err != nil {
		log.Printf("[auth] guest payment linking failed for %s: %v", userID, err)
		return
	}
	if result.Linked {
		log.Printf("[auth] linked guest payment for user %s", userID)
	}
}
