package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DukeRupert/aidnexus/internal/domain"
)

// =============================================================================
// Error Response Tests - Security Focus
// =============================================================================

func TestValidationErrorResponse_DoesNotExposeOperationName(t *testing.T) {
	ve := domain.NewValidationError("RecordService.Create", "description", "Description is required")

	req := httptest.NewRequest(http.MethodPost, "/api/records", nil)
	rec := httptest.NewRecorder()
	ValidationErrorResponse(rec, req, discardLogger(), ve)

	body := rec.Body.String()
	if strings.Contains(body, "RecordService") {
		t.Errorf("response exposes internal operation name: %s", body)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var resp JSONError
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.Error.Code != domain.EINVALID {
		t.Errorf("code = %q, want %q", resp.Error.Code, domain.EINVALID)
	}
	if resp.Error.Fields["description"] != "Description is required" {
		t.Errorf("fields = %v, want description message", resp.Error.Fields)
	}
}

func TestErrorResponse_InternalDetailsHidden(t *testing.T) {
	err := domain.Internal(fmt.Errorf("pq: connection refused to 10.0.0.5"), "postgres.load", "failed to load session")

	req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, discardLogger(), err)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	body := rec.Body.String()
	for _, leak := range []string{"10.0.0.5", "postgres.load", "failed to load session"} {
		if strings.Contains(body, leak) {
			t.Errorf("response leaks %q: %s", leak, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestErrorResponse_PlainErrorIsInternal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, discardLogger(), errors.New("boom"))

	var resp JSONError
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.Error.Code != domain.EINTERNAL {
		t.Errorf("code = %q, want %q", resp.Error.Code, domain.EINTERNAL)
	}
	if strings.Contains(resp.Error.Message, "boom") {
		t.Errorf("message leaks the error text: %q", resp.Error.Message)
	}
}

func TestErrorResponse_WrappedValidationError(t *testing.T) {
	ve := domain.NewValidationError("op", "progress", "Progress is required")

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, discardLogger(), fmt.Errorf("decode: %w", ve))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rec.Body.String(), `"progress"`) {
		t.Errorf("field errors missing: %s", rec.Body.String())
	}
}

// =============================================================================
// Status Mapping
// =============================================================================

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.ETOOLARGE, http.StatusRequestEntityTooLarge},
		{domain.EUNSUPPORTED, http.StatusUnsupportedMediaType},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EUNAVAILABLE, http.StatusServiceUnavailable},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := ErrorCodeToHTTPStatus(tt.code); got != tt.want {
			t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

// =============================================================================
// Health
// =============================================================================

func TestHealthHandler(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus int
		wantBody   string
	}{
		{"no dependencies", nil, http.StatusOK, `"status":"ok"`},
		{"all up", map[string]Pinger{"postgres": ok, "redis": ok}, http.StatusOK, `"redis":"ok"`},
		{"one down", map[string]Pinger{"postgres": ok, "redis": down}, http.StatusServiceUnavailable, `"redis":"down"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("mock", tt.checks, discardLogger())
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want it to contain %s", rec.Body.String(), tt.wantBody)
			}
			if !strings.Contains(rec.Body.String(), `"ai_provider":"mock"`) {
				t.Errorf("body missing provider: %s", rec.Body.String())
			}
		})
	}
}
