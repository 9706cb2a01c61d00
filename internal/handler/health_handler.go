package handler

import (
	"context"
	"net/http"
	"time"

	"visitor-counter/pkg/logger"
)

// HealthChecker is anything that can report its own reachability
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	store    HealthChecker
	database HealthChecker
	version  string
	logger   *logger.Logger
}

// NewHealthHandler creates a new health handler. database may be nil when
// snapshot persistence is disabled.
func NewHealthHandler(store HealthChecker, database HealthChecker, version string, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:    store,
		database: database,
		version:  version,
		logger:   log.Component("health_handler"),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	Version        string    `json:"version"`
	Service        string    `json:"service"`
	RedisStatus    string    `json:"redis_status"`
	DatabaseStatus string    `json:"database_status,omitempty"`
}

// Check handles GET /health. A down store makes the service unhealthy; a
// down database only degrades it, since counting keeps working.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC(),
		Version:     h.version,
		Service:     "visitor-counter",
		RedisStatus: "connected",
	}
	status := http.StatusOK

	if err := h.store.Health(ctx); err != nil {
		h.logger.WithError(err).Warn("Redis health check failed")
		response.Status = "unhealthy"
		response.RedisStatus = "disconnected: " + err.Error()
		status = http.StatusServiceUnavailable
	}

	if h.database != nil {
		response.DatabaseStatus = "connected"
		if err := h.database.Health(ctx); err != nil {
			h.logger.WithError(err).Warn("Database health check failed")
			response.DatabaseStatus = "disconnected: " + err.Error()
			if status == http.StatusOK {
				response.Status = "degraded"
			}
		}
	}

	writeJSON(w, h.logger, status, response)
}
