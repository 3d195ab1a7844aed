package handlers

import (
	"context"
	"net/http"

	"github.com/sbilibin2017/gw-todo/internal/logger"
)

//go:generate mockgen -source=health.go -destination=mock_health.go -package=handlers

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthResponse represents the health check body
type HealthResponse struct {
	Status string `json:"status"`
}

// NewHealthHandler returns an HTTP handler answering 200 while the database
// responds to pings and 503 otherwise.
func NewHealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			logger.Log.Errorw("health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
