package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/nightswipe/api/internal/modules/core"
)

// IdentityMiddleware verifies the bearer token on the request and places
// the resulting caller identity into the request context.
func IdentityMiddleware(verifier *TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				core.WriteUnauthorized(w, r, map[string]string{"error": "missing authorization header"})
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
				core.WriteUnauthorized(w, r, map[string]string{"error": "invalid authorization header format"})
				return
			}

			userID, err := verifier.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				core.WriteUnauthorized(w, r, map[string]string{"error": "invalid or expired token"})
				return
			}

			identityContext := context.WithValue(r.Context(), core.IdentityContextKey, core.Identity{UserID: userID})
			next.ServeHTTP(w, r.WithContext(identityContext))
		})
	}
}
