package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DukeRupert/aidnexus/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock is a settable time source for limiter tests.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(limit int, window time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(limit, window)
	rl.now = clock.now
	return rl, clock
}

// =============================================================================
// RateLimiter Tests
// =============================================================================

func TestRateLimiter_Allow(t *testing.T) {
	rl, _ := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("4th request should be denied")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other clients keep their own budget")
	}
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	rl, clock := newTestLimiter(1, time.Minute)

	rl.Allow("10.0.0.1")
	if rl.Allow("10.0.0.1") {
		t.Fatal("second request in window should be denied")
	}

	clock.advance(30 * time.Second)
	if got := rl.TimeUntilReset("10.0.0.1"); got != 30*time.Second {
		t.Errorf("TimeUntilReset = %v, want 30s", got)
	}

	clock.advance(31 * time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Error("request after the window should be allowed")
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	rl, _ := newTestLimiter(1, time.Minute)

	rl.Allow("10.0.0.1")
	rl.Reset("10.0.0.1")

	if !rl.Allow("10.0.0.1") {
		t.Error("request after reset should be allowed")
	}
	if got := rl.TimeUntilReset("unknown"); got != 0 {
		t.Errorf("TimeUntilReset for unknown key = %v, want 0", got)
	}
}

func TestRateLimiter_Purge(t *testing.T) {
	rl, clock := newTestLimiter(5, time.Minute)

	rl.Allow("old")
	clock.advance(2 * time.Minute)
	rl.Allow("new")

	if removed := rl.Purge(); removed != 1 {
		t.Errorf("Purge removed %d, want 1", removed)
	}
	if rl.Len() != 1 {
		t.Errorf("Len = %d, want 1", rl.Len())
	}
}

// =============================================================================
// RateLimitMiddleware Tests
// =============================================================================

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(1, time.Minute)
	mw := NewRateLimitMiddleware(rl, "ai", discardLogger())

	calls := 0
	h := mw.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze/text", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != domain.ERATELIMIT {
		t.Errorf("error code = %q, want %q", body.Error.Code, domain.ERATELIMIT)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "10.0.0.1:1", "203.0.113.9"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.7 "}, "10.0.0.1:1", "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
