package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Probe reports whether one backing store is reachable.
type Probe func(ctx context.Context) error

// HealthHandler reports process liveness and store readiness.
type HealthHandler struct {
	probes  map[string]Probe
	started time.Time
	timeout time.Duration
}

func NewHealthHandler(probes map[string]Probe) *HealthHandler {
	return &HealthHandler{probes: probes, started: time.Now(), timeout: 2 * time.Second}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Uptime    float64           `json:"uptime"`
	Timestamp int64             `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func (h *HealthHandler) check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	checks := make(map[string]string, len(h.probes))
	healthy := true
	for name, probe := range h.probes {
		if err := probe(ctx); err != nil {
			checks[name] = "DOWN"
			healthy = false
			continue
		}
		checks[name] = "UP"
	}
	return checks, healthy
}

// Health probes every configured store. Any failure yields 503 DEGRADED.
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks, healthy := h.check(r.Context())

	resp := HealthResponse{
		Status:    "OK",
		Uptime:    time.Since(h.started).Seconds(),
		Timestamp: time.Now().UnixMilli(),
		Checks:    checks,
	}
	status := http.StatusOK
	if !healthy {
		resp.Status = "DEGRADED"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// @Router /health/ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if _, healthy := h.check(r.Context()); !healthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// @Router /health/live [get]
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
