package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/agentarena/realtime-backend/internal/auth"
)

// AgentClaimsKey is the key used to store agent claims in the request context.
const AgentClaimsKey contextKey = "agent_claims"

// JWTAuth validates the bearer token from the Authorization header and puts
// the agent claims on the request context.
func JWTAuth(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Authorization header format must be Bearer {token}", http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(parts[1])
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), AgentClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAgentClaims retrieves the authenticated agent claims from the context.
func GetAgentClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(AgentClaimsKey).(*auth.Claims)
	return claims, ok
}
