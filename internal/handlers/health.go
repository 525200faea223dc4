package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
}

// Health handles the health check endpoint. The status degrades when the
// local store stops answering; the foreign database being absent is normal
// operation and does not affect health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	statusCode := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	h.JSON(w, statusCode, HealthResponse{
		Status:  status,
		Clients: h.hub.Count(),
	})
}
