package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler exposes liveness information.
type HealthHandler struct {
	startedAt time.Time
}

// NewHealthHandler builds a new health handler instance.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{startedAt: time.Now().UTC()}
}

// Status returns the daemon's liveness and uptime.
func (h *HealthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		StartedAt: h.startedAt,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
	})
}
