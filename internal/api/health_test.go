package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func check(name string, critical bool, err error) HealthCheck {
	return HealthCheck{Name: name, Critical: critical, Check: func(context.Context) error { return err }}
}

func TestReadiness(t *testing.T) {
	down := errors.New("down")

	tests := []struct {
		name       string
		checks     []HealthCheck
		wantCode   int
		wantStatus string
	}{
		{"all up", []HealthCheck{check("postgres", true, nil), check("redis", false, nil)}, http.StatusOK, "ok"},
		{"redis down", []HealthCheck{check("postgres", true, nil), check("redis", false, down)}, http.StatusOK, "degraded"},
		{"postgres down", []HealthCheck{check("redis", false, nil), check("postgres", true, down)}, http.StatusServiceUnavailable, "error"},
		{"no checks", nil, http.StatusOK, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checks, "test", "v1")
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), `"status":"`+tt.wantStatus+`"`)
		})
	}
}
