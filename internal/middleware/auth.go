package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/huddle/client/internal/auth"
	"github.com/huddle/client/internal/logging"
)

// TokenValidator verifies bearer access tokens.
type TokenValidator interface {
	Validate(accessToken string) (auth.Claims, error)
}

// Unauthorized writes the rejection of a request with a missing or bad token.
type Unauthorized func(w http.ResponseWriter, r *http.Request, message string)

type claimsKey struct{}

// Authenticate rejects requests without a valid bearer token and stores the
// token claims on the request context.
func Authenticate(validator TokenValidator, reject Unauthorized) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				reject(w, r, "authorization header required")
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || scheme != "Bearer" || strings.TrimSpace(token) == "" {
				reject(w, r, "invalid authorization header format")
				return
			}

			claims, err := validator.Validate(strings.TrimSpace(token))
			if err != nil {
				logging.FromContext(r.Context()).Warn("access token rejected", "error", err)
				if errors.Is(err, auth.ErrAccessTokenExpired) {
					reject(w, r, auth.ErrAccessTokenExpired.Error())
				} else {
					reject(w, r, auth.ErrInvalidAccessToken.Error())
				}
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("user_id", claims.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(auth.Claims)
	return claims, ok
}

// UserIDFromContext returns the authenticated user id, or zero.
func UserIDFromContext(ctx context.Context) uint {
	claims, _ := ClaimsFromContext(ctx)
	return claims.UserID
}
