package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/records", "/api/records"},
		{"/api/records/6ba7b810-9dad-11d1-80b4-00c04fd430c8", "/api/records/{id}"},
		{"/api/records/6ba7b810-9dad-11d1-80b4-00c04fd430c8/steps/3/complete", "/api/records/{id}/steps/{index}/complete"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.path))
	}
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		want   string
	}{
		{"served", "/api/records", http.StatusOK, "/api/records"},
		{"unknown record", "/api/records/6ba7b810-9dad-11d1-80b4-00c04fd430c8", http.StatusNotFound, "/api/records/{id}"},
		{"probe", "/wp-admin/install.php", http.StatusNotFound, unmatchedPath},
		{"wrong method", "/api/voice/command", http.StatusMethodNotAllowed, unmatchedPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, routeLabel(tt.path, tt.status))
		})
	}
}

func TestMiddleware_CountsRequests(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))

	counter := HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/brew", "418")
	before := testutil.ToFloat64(counter)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/brew", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestMiddleware_SkipsHealth(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	counter := HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200")
	before := testutil.ToFloat64(counter)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, before, testutil.ToFloat64(counter))
}
