package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is anything that can report whether a backing service responds.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db    HealthChecker
	redis HealthChecker
}

func NewHealthHandler(db, redis HealthChecker) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Live reports that the process is serving requests.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "alive"})
}

// Ready checks Postgres and Redis.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	services := map[string]string{"postgres": "ok", "redis": "ok"}
	status := http.StatusOK
	if err := h.db.Health(ctx); err != nil {
		services["postgres"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if err := h.redis.Health(ctx); err != nil {
		services["redis"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	resp := HealthResponse{Status: "ready", Services: services}
	if status != http.StatusOK {
		resp.Status = "not ready"
	}
	writeJSON(w, status, resp)
}
