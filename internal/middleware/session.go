package middleware

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/aidnexus/internal/metrics"
	"github.com/DukeRupert/aidnexus/internal/session"
)

// SessionMiddleware gives every request an anonymous session. The session
// ID travels in a cookie and is the only key to the caller's records.
type SessionMiddleware struct {
	logger   *slog.Logger
	isSecure bool // Sets the Secure cookie flag (true in production)
	newID    func() string
}

// NewSessionMiddleware creates a session middleware.
func NewSessionMiddleware(logger *slog.Logger, isSecure bool) *SessionMiddleware {
	return &SessionMiddleware{
		logger:   logger,
		isSecure: isSecure,
		newID:    session.NewID,
	}
}

// Handler reads the session cookie, issuing a new one when it is missing
// or malformed, and stores the ID in the request context. The cookie is
// refreshed on every request so active sessions do not expire.
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(session.CookieName); err == nil && session.ValidID(c.Value) {
			id = c.Value
		}
		if id == "" {
			id = m.newID()
			metrics.SessionsStarted.Inc()
			m.logger.Debug("session started", "session", shortID(id))
		}

		http.SetCookie(w, &http.Cookie{
			Name:     session.CookieName,
			Value:    id,
			Path:     session.CookiePath,
			MaxAge:   session.CookieMaxAge,
			HttpOnly: true,
			Secure:   m.isSecure,
			SameSite: http.SameSiteLaxMode,
		})

		next.ServeHTTP(w, r.WithContext(session.WithID(r.Context(), id)))
	})
}
