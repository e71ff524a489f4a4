package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/mercury-net/mercury/internal/httputil"
)

type contextKey string

const agentIDKey = contextKey("agent-id")

// TokenValidator validates a bearer token and returns the agent it belongs to.
type TokenValidator interface {
	ValidateToken(tokenString string) (string, error)
}

// RequireAgent is middleware that enforces a valid Bearer token on the
// wrapped handler. The authenticated agent ID is stored in the request
// context.
func RequireAgent(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				httputil.WriteError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				httputil.WriteError(w, http.StatusUnauthorized, "malformed authorization header")
				return
			}

			agentID, err := validator.ValidateToken(parts[1])
			if err != nil {
				httputil.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := ContextWithAgent(r.Context(), agentID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ContextWithAgent attaches an authenticated agent ID to the context.
func ContextWithAgent(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, agentIDKey, agentID)
}

// AgentFromContext returns the authenticated agent ID, if any.
func AgentFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(agentIDKey).(string)
	return id, ok
}
