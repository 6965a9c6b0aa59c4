package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type contextKey string

const (
	AdminSessionKey contextKey = "admin_session"

	// AdminTokenHeader carries the session token issued by the password check
	AdminTokenHeader = "X-Admin-Token"
)

// TokenVerifier reports whether a session token is valid
type TokenVerifier interface {
	Verify(token string) bool
}

// AdminAuth rejects requests that carry no valid admin session token.
func AdminAuth(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := ExtractToken(r)
			if !ok {
				logger.Debug("Missing admin token", zap.String("path", r.URL.Path))
				RespondWithError(w, http.StatusUnauthorized, "missing admin token")
				return
			}

			if !verifier.Verify(token) {
				logger.Debug("Admin token rejected", zap.String("path", r.URL.Path))
				RespondWithError(w, http.StatusUnauthorized, "invalid or expired admin token")
				return
			}

			ctx := context.WithValue(r.Context(), AdminSessionKey, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken reads the session token from the X-Admin-Token header, a
// Bearer Authorization header or the token query parameter, in that order.
func ExtractToken(r *http.Request) (string, bool) {
	if token := strings.TrimSpace(r.Header.Get(AdminTokenHeader)); token != "" {
		return token, true
	}

	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token, true
			}
		}
	}

	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token, true
	}
	return "", false
}

// IsAdmin reports whether the request passed AdminAuth
func IsAdmin(ctx context.Context) bool {
	ok, _ := ctx.Value(AdminSessionKey).(bool)
	return ok
}
