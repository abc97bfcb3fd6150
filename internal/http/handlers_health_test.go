package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		method   string
		wantBody string
	}{
		{method: http.MethodGet, wantBody: `{"status":"ok"}`},
		{method: http.MethodHead, wantBody: ""},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/healthz", nil)
			rec := httptest.NewRecorder()

			healthHandler(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestReadinessHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		checks   map[string]HealthCheck
		method   string
		wantCode int
		wantBody string
	}{
		{
			name:     "no checks",
			method:   http.MethodGet,
			wantCode: http.StatusOK,
			wantBody: `{"status":"ok"}`,
		},
		{
			name:     "all healthy",
			checks:   map[string]HealthCheck{"postgres": ok, "redis": ok},
			method:   http.MethodGet,
			wantCode: http.StatusOK,
			wantBody: `{"status":"ok","checks":{"postgres":"ok","redis":"ok"}}`,
		},
		{
			name:     "one failing",
			checks:   map[string]HealthCheck{"postgres": ok, "redis": down},
			method:   http.MethodGet,
			wantCode: http.StatusServiceUnavailable,
			wantBody: `{"status":"unavailable","checks":{"postgres":"ok","redis":"unavailable: connection refused"}}`,
		},
		{
			name:     "head has no body",
			checks:   map[string]HealthCheck{"redis": down},
			method:   http.MethodHead,
			wantCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newReadinessHandler(tt.checks, 0)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/readyz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody == "" {
				assert.Empty(t, rec.Body.String())
				return
			}
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestReadinessHandler_ChecksSeeDeadline(t *testing.T) {
	h := newReadinessHandler(map[string]HealthCheck{
		"slow": func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "deadline exceeded")
}
