package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"hexmap-server/internal/shared/database"
	"hexmap-server/internal/shared/redis"
	"hexmap-server/internal/shared/response"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
	Events    string `json:"events"`
}

type HealthHandler struct {
	db    *database.DB
	redis *redis.Client
}

// NewHealthHandler takes a nil redis client when event publishing is off
func NewHealthHandler(db *database.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "disconnected"
	if err := h.db.PingContext(ctx); err == nil {
		dbStatus = "connected"
	} else {
		status = "degraded"
		logger.Warn("Database ping failed", "error", err)
	}

	eventsStatus := "disabled"
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err == nil {
			eventsStatus = "connected"
		} else {
			eventsStatus = "disconnected"
			logger.Warn("Redis ping failed", "error", err)
		}
	}

	resp := HealthResponse{
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
		Database:  dbStatus,
		Events:    eventsStatus,
	}

	response.Success(w, http.StatusOK, resp)
}
