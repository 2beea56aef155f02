package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// HealthResponse is the body of both health endpoints.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// LivenessHandler reports whether the process is alive.
func LivenessHandler(source StatusSource, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "alive"}
		code := http.StatusOK
		if !source.Liveness() {
			resp.Status = "not alive"
			code = http.StatusServiceUnavailable
		}
		writeHealth(w, code, resp, logger)
	}
}

// ReadinessHandler reports whether the run is healthy, with per-phase status
// in checks.
func ReadinessHandler(source StatusSource, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ready", Checks: source.GetStatus()}
		code := http.StatusOK
		if !source.Readiness(r.Context()) {
			resp.Status = "not ready"
			code = http.StatusServiceUnavailable
		}
		writeHealth(w, code, resp, logger)
	}
}

func writeHealth(w http.ResponseWriter, code int, resp HealthResponse, logger *slog.Logger) {
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to encode health response", "error", err)
	}
}
