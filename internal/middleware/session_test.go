package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DukeRupert/aidnexus/internal/session"
)

func serveSession(t *testing.T, cookie *http.Cookie) (string, *http.Cookie) {
	t.Helper()

	var seen string
	h := NewSessionMiddleware(discardLogger(), true).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = session.IDFromRequest(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return seen, c
		}
	}
	t.Fatal("session cookie not set")
	return "", nil
}

func TestSessionMiddleware_IssuesCookie(t *testing.T) {
	id, c := serveSession(t, nil)

	if !session.ValidID(id) {
		t.Fatalf("context session ID %q is not valid", id)
	}
	if c.Value != id {
		t.Errorf("cookie value = %q, want %q", c.Value, id)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie flags = httponly:%v secure:%v samesite:%v", c.HttpOnly, c.Secure, c.SameSite)
	}
	if c.MaxAge != session.CookieMaxAge {
		t.Errorf("MaxAge = %d, want %d", c.MaxAge, session.CookieMaxAge)
	}
}

func TestSessionMiddleware_KeepsValidCookie(t *testing.T) {
	existing := session.NewID()
	id, c := serveSession(t, &http.Cookie{Name: session.CookieName, Value: existing})

	if id != existing || c.Value != existing {
		t.Errorf("session = %q cookie = %q, want %q", id, c.Value, existing)
	}
}

func TestSessionMiddleware_ReplacesMalformedCookie(t *testing.T) {
	id, _ := serveSession(t, &http.Cookie{Name: session.CookieName, Value: "../../etc/passwd"})

	if id == "../../etc/passwd" || !session.ValidID(id) {
		t.Errorf("malformed cookie should be replaced, got %q", id)
	}
}

func TestStack_Order(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Stack(tag("outer"), tag("inner"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "handler" {
		t.Errorf("order = %v", order)
	}
}
