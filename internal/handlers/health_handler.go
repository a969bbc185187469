package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by *database.DB
type Pinger interface {
	Healthy(ctx context.Context) error
}

// HealthHandler reports whether the database is reachable
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health responds 200 when the database answers a ping within two seconds
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Healthy(ctx); err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "unhealthy", "Health check failed", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}
