package kernel

import (
	"context"
	"net/http"
	"strings"
)

type contextKey int

const userIDKey contextKey = iota

// userIDFrom returns the authenticated user ID stored by requireAuth.
func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// requireAuth verifies the bearer token and puts the Cognito `sub` claim in
// the request context as the user ID. With auth disabled (local development)
// every request runs as "anonymous".
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authDisabled {
			next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, "anonymous")))
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}

		claims, err := s.auth.VerifyToken(r.Context(), token)
		if err != nil {
			s.logger.Warn("token verification failed", "error", err)
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Unauthorized", "invalid authentication token")
			return
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "user id not found in token claims")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, sub)))
	}
}
