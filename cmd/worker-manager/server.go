package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// checker probes one dependency for the readiness endpoint.
type checker func(ctx context.Context) error

const readinessTimeout = 3 * time.Second

// newHealthMux serves /health (liveness), /ready (dependency probes plus at
// least one running worker) and /metrics.
func newHealthMux(checks map[string]checker, running func() []string, now func() time.Time) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   now().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		status, code := "ready", http.StatusOK
		deps := make(map[string]string, len(checks))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				deps[name] = err.Error()
				status, code = "not_ready", http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		workers := running()
		sort.Strings(workers)
		if len(workers) == 0 {
			status, code = "not_ready", http.StatusServiceUnavailable
		}

		writeJSON(w, code, map[string]interface{}{
			"status":       status,
			"dependencies": deps,
			"workers":      workers,
			"time":         now().Format(time.RFC3339),
		})
	})

	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
