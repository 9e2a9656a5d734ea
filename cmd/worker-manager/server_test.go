package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time { return time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC) }

func ok(context.Context) error { return nil }

func get(t *testing.T, mux *http.ServeMux, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	mux := newHealthMux(nil, func() []string { return nil }, fixedNow)

	rec, body := get(t, mux, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "2025-06-10T08:00:00Z", body["time"])
}

func TestReady(t *testing.T) {
	tests := []struct {
		name     string
		checks   map[string]checker
		workers  []string
		wantCode int
		wantDeps map[string]interface{}
	}{
		{
			name:     "all dependencies up",
			checks:   map[string]checker{"postgres": ok, "zeebe": ok},
			workers:  []string{"get-food-recommendations", "food-logged"},
			wantCode: http.StatusOK,
			wantDeps: map[string]interface{}{"postgres": "ok", "zeebe": "ok"},
		},
		{
			name: "redis down",
			checks: map[string]checker{
				"postgres": ok,
				"redis":    func(context.Context) error { return errors.New("redis ping failed: connection refused") },
			},
			workers:  []string{"food-logged"},
			wantCode: http.StatusServiceUnavailable,
			wantDeps: map[string]interface{}{"postgres": "ok", "redis": "redis ping failed: connection refused"},
		},
		{
			name:     "no workers running",
			checks:   map[string]checker{"postgres": ok},
			wantCode: http.StatusServiceUnavailable,
			wantDeps: map[string]interface{}{"postgres": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newHealthMux(tt.checks, func() []string { return tt.workers }, fixedNow)

			rec, body := get(t, mux, "/ready")

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantDeps, body["dependencies"])
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, "ready", body["status"])
				assert.Equal(t, []interface{}{"food-logged", "get-food-recommendations"}, body["workers"])
			} else {
				assert.Equal(t, "not_ready", body["status"])
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux := newHealthMux(nil, func() []string { return nil }, fixedNow)

	rec, _ := get(t, mux, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
