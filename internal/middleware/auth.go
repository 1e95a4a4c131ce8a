package middleware

import (
	"net/http"

	"github.com/MikhailRaia/bookmark-manager/internal/auth"
	"github.com/MikhailRaia/bookmark-manager/internal/model"
	"github.com/rs/zerolog/log"
)

// SessionChecker resolves the session carried by a request.
type SessionChecker interface {
	CheckSession(r *http.Request) (model.Identity, bool, error)
}

// AuthMiddleware guards API routes with the session gate's check.
type AuthMiddleware struct {
	sessions SessionChecker
}

// NewAuthMiddleware creates an AuthMiddleware backed by sessions.
func NewAuthMiddleware(sessions SessionChecker) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
	}
}

// RequireSession answers 401 without a session and 503 when the session query
// fails. Otherwise the identity is placed in the request context.
func (a *AuthMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok, err := a.sessions.CheckSession(r)
		if err != nil {
			log.Error().Err(err).Msg("Session check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		if !ok {
			log.Debug().Str("uri", r.RequestURI).Msg("No session for API request")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	})
}
