package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"hexmap-server/internal/access"
	"hexmap-server/internal/auth"
	"hexmap-server/internal/shared/errors"
	"hexmap-server/internal/shared/response"
)

type contextKey string

const RequesterContextKey contextKey = "requester"

const authCookieName = "auth_token"

// Authenticator resolves the requester of every request. Requests without
// a token continue as anonymous readers; a token that fails validation is
// rejected outright.
type Authenticator struct {
	validator *auth.Validator
}

func NewAuthenticator(validator *auth.Validator) *Authenticator {
	return &Authenticator{validator: validator}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "jwt",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		token := tokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r.WithContext(WithRequester(r.Context(), access.Anonymous())))
			return
		}

		claims, err := a.validator.Validate(token)
		if err != nil {
			logger.Debug("Token validation failed", "error", err)
			response.Error(w, r, logger, errors.Unauthorized("invalid token"))
			return
		}

		requester := access.User(claims.UserID)
		if claims.Role == auth.RoleSystem {
			requester = access.System()
		}

		logger.Debug("JWT authentication successful", "requester", requester.String())
		next.ServeHTTP(w, r.WithContext(WithRequester(r.Context(), requester)))
	})
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}

	if cookie, err := r.Cookie(authCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func WithRequester(ctx context.Context, requester access.Requester) context.Context {
	return context.WithValue(ctx, RequesterContextKey, requester)
}

// RequesterFromContext falls back to anonymous when no middleware ran
func RequesterFromContext(ctx context.Context) access.Requester {
	if requester, ok := ctx.Value(RequesterContextKey).(access.Requester); ok {
		return requester
	}
	return access.Anonymous()
}
