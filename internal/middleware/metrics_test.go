package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBasicAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		user, pass string // configured
		auth       bool
		gotUser    string
		gotPass    string
		wantStatus int
	}{
		{"valid", "prom", "s3cret", true, "prom", "s3cret", http.StatusOK},
		{"missing", "prom", "s3cret", false, "", "", http.StatusUnauthorized},
		{"wrong user", "prom", "s3cret", true, "admin", "s3cret", http.StatusUnauthorized},
		{"wrong password", "prom", "s3cret", true, "prom", "guess", http.StatusUnauthorized},
		{"disabled", "", "", false, "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBasicAuthMiddleware("metrics", tt.user, tt.pass).Handler(ok)

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.auth {
				req.SetBasicAuth(tt.gotUser, tt.gotPass)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if got := rec.Header().Get("WWW-Authenticate"); got != `Basic realm="metrics"` {
					t.Errorf("WWW-Authenticate = %q", got)
				}
			}
		})
	}
}
