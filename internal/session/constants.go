// Package session maps anonymous browser sessions to their record stores.
package session

const (
	// CookieName is the name of the cookie that carries the session ID.
	CookieName = "aidnexus_session"

	// CookiePath ensures the cookie is sent with all requests.
	CookiePath = "/"

	// CookieMaxAge keeps a session for 30 days.
	CookieMaxAge = 30 * 24 * 60 * 60
)
