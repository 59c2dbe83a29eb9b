package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveSecurity(isSecure bool) *httptest.ResponseRecorder {
	h := NewSecurityHeadersMiddleware(isSecure).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/records", nil))
	return rec
}

func TestSecurityHeadersMiddleware_SetsHeaders(t *testing.T) {
	rec := serveSecurity(false)

	want := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "no-referrer",
		"Cache-Control":          "no-store",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want handler status 201", rec.Code)
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS should not be set outside production")
	}
}

func TestSecurityHeadersMiddleware_HSTSInProduction(t *testing.T) {
	rec := serveSecurity(true)
	if !strings.Contains(rec.Header().Get("Strict-Transport-Security"), "max-age=31536000") {
		t.Errorf("HSTS = %q", rec.Header().Get("Strict-Transport-Security"))
	}
}

func TestSecurityHeadersMiddleware_Policies(t *testing.T) {
	rec := serveSecurity(false)

	csp := rec.Header().Get("Content-Security-Policy")
	for _, directive := range []string{"default-src 'none'", "frame-ancestors 'none'", "img-src 'self' data: https:"} {
		if !strings.Contains(csp, directive) {
			t.Errorf("CSP missing %q: %s", directive, csp)
		}
	}

	pp := rec.Header().Get("Permissions-Policy")
	if !strings.Contains(pp, "geolocation=(self)") || !strings.Contains(pp, "microphone=(self)") {
		t.Errorf("Permissions-Policy = %q", pp)
	}
}
