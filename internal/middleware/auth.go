package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/prudhvinik1/parlourpunch/internal/models"
	"github.com/prudhvinik1/parlourpunch/internal/services"
)

const TokenCookie = "token"

type contextKey string

const identityKey contextKey = "parlourpunch-identity"

// TokenVerifier is satisfied by services.AuthService.
type TokenVerifier interface {
	VerifyToken(token string) (*models.Identity, error)
}

func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (*models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*models.Identity)
	return identity, ok && identity != nil
}

// TokenFromRequest looks for the JWT in the token cookie, then the
// Authorization header, then the token query parameter (browsers cannot set
// headers on WebSocket upgrades).
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); header != "" {
		if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
			return strings.TrimSpace(header[7:])
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// Authenticate rejects requests without a valid token and stores the
// caller identity on the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				WriteError(w, http.StatusUnauthorized, "Access denied. No token provided.")
				return
			}

			identity, err := verifier.VerifyToken(token)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "Invalid or expired token.")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAdminOrSuperAdmin must run after Authenticate.
func RequireAdminOrSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			WriteError(w, http.StatusUnauthorized, "Unauthorized. Token missing or invalid.")
			return
		}
		if !identity.CanManageAttendance() {
			WriteError(w, http.StatusForbidden, "Access denied. Admin or Super Admin role required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AuthStatus maps an authorization error to its HTTP status and message.
func AuthStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrForbiddenRole):
		return http.StatusForbidden, "Access denied. Admin or Super Admin role required."
	case errors.Is(err, services.ErrMissingToken):
		return http.StatusUnauthorized, "Access denied. No token provided."
	default:
		return http.StatusUnauthorized, "Invalid or expired token."
	}
}
