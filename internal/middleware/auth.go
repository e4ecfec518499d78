package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/corretoria/backend/internal/contextkeys"
	"github.com/corretoria/backend/internal/domain"
	"github.com/corretoria/backend/internal/handler"
	"github.com/corretoria/backend/internal/service"
)

// Auth creates a JWT authentication middleware.
func Auth(authSvc *service.AuthService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := claimsFromRequest(authSvc, r)
			if err != nil {
				handler.Error(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), claims)))
		})
	}
}

// OptionalAuth attaches the identity when a valid token is present but lets
// anonymous requests through. Used on routes that serve both guests and
// authenticated users (PIX checkout, usage consumption).
func OptionalAuth(authSvc *service.AuthService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := claimsFromRequest(authSvc, r)
			if err != nil {
				handler.Error(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), claims)))
		})
	}
}

func claimsFromRequest(authSvc *service.AuthService, r *http.Request) (*claimsValue, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, unauthorized("no token provided")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, unauthorized("invalid authorization header")
	}

	claims, err := authSvc.VerifyToken(parts[1])
	if err != nil {
		return nil, unauthorized("invalid or expired token")
	}
	return &claimsValue{sub: claims.Sub, email: claims.Email, role: claims.Role}, nil
}

func unauthorized(msg string) error {
	return domain.ErrUnauthorized(msg)
}

type claimsValue struct {
	sub, email, role string
}

func withIdentity(ctx context.Context, c *claimsValue) context.Context {
	ctx = context.WithValue(ctx, contextkeys.UserID, c.sub)
	ctx = context.WithValue(ctx, contextkeys.UserEmail, c.email)
	return context.WithValue(ctx, contextkeys.UserRole, c.role)
}
