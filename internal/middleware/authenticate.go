package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cliphub/backend/internal/logging"
	"github.com/cliphub/backend/internal/models"
)

// AccessTokenCookie is the cookie carrying the short-lived access token.
const AccessTokenCookie = "accessToken"

type identityKey struct{}

// TokenVerifier validates an access token and returns the embedded user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserLoader resolves a user record by id.
type UserLoader interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// WithUser stores the authenticated user on the context.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, identityKey{}, user)
}

// UserFromContext retrieves the authenticated user attached by Authenticate.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(identityKey{}).(models.User)
	return user, ok
}

// Authenticate verifies the bearer token from the accessToken cookie or the
// Authorization header, re-loads the user record, and attaches it to the
// request context. Requests without a valid token are rejected with 401 before
// reaching the handler. Every request re-verifies; nothing is cached.
func Authenticate(verifier TokenVerifier, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := logging.FromContext(ctx)

			token := extractBearerToken(r)
			if token == "" {
				logger.Warn("request missing access token", "path", r.URL.Path)
				writeUnauthorized(w, "unauthorized request")
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				logger.Warn("access token rejected", "error", err)
				writeUnauthorized(w, "invalid access token")
				return
			}

			user, err := users.FindByID(ctx, userID)
			if err != nil {
				logger.Warn("access token user lookup failed", "userId", userID, "error", err)
				writeUnauthorized(w, "invalid access token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}

// AuthenticateOptional attaches the user to the context when a valid token is
// presented and passes anonymous requests through untouched. Public routes use
// it so owners still see their own unpublished resources.
func AuthenticateOptional(verifier TokenVerifier, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := extractBearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.FindByID(ctx, userID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}

// extractBearerToken prefers the Authorization header and falls back to the
// access-token cookie.
func extractBearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}

	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return ""
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"statusCode": http.StatusUnauthorized,
		"message":    message,
		"success":    false,
	})
}
