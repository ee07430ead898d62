package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"shopadmin.app/internal/auth"
	"shopadmin.app/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

const (
	msgNoToken      = "Access denied. No token provided."
	msgTokenExpired = "Token expired. Please login again."
	msgInvalidToken = "Invalid token."
	msgNoRole       = "Forbidden: No role assigned."
	msgForbidden    = "Forbidden: Insufficient permissions."
)

// Authenticate verifies the bearer token and attaches the caller's
// identity to the request context.
func Authenticate(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearerToken(r.Header.Get(authHeader))
			if !ok {
				obs.AuthFailure("missing_token")
				writeError(w, r, http.StatusUnauthorized, msgNoToken)
				return
			}
			id, err := v.Verify(token)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					obs.AuthFailure("expired")
					writeError(w, r, http.StatusUnauthorized, msgTokenExpired)
					return
				}
				obs.AuthFailure("invalid")
				writeError(w, r, http.StatusUnauthorized, msgInvalidToken)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), id)))
		})
	}
}

// Authorize admits callers whose role is in roles. It reads the identity
// left by Authenticate and must be composed after it; on its own every
// request is rejected as having no role.
func Authorize(roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := append([]auth.Role(nil), roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				obs.AuthFailure("no_role")
				writeError(w, r, http.StatusForbidden, msgNoRole)
				return
			}
			if !auth.Allowed(id.Role, allowed...) {
				obs.AuthFailure("forbidden")
				writeError(w, r, http.StatusForbidden, msgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearer):])
	return token, token != ""
}
