package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-authkit/internal/usecase"
)

// SecurityHandler exposes the monitor's report and alert management.
type SecurityHandler struct {
	monitor *usecase.SecurityMonitor
}

// NewSecurityHandler builds a new security handler instance.
func NewSecurityHandler(monitor *usecase.SecurityMonitor) *SecurityHandler {
	return &SecurityHandler{monitor: monitor}
}

// Report returns the security snapshot, optionally limited to a trailing
// timeframe ("?timeframe=1h").
func (h *SecurityHandler) Report(c *gin.Context) {
	var timeframe time.Duration
	if raw := c.Query("timeframe"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid timeframe"})
			return
		}
		timeframe = parsed
	}
	c.JSON(http.StatusOK, h.monitor.Report(timeframe))
}

// Anomaly runs the combined per-user anomaly heuristics on demand.
func (h *SecurityHandler) Anomaly(c *gin.Context) {
	userID := c.Param("user_id")
	c.JSON(http.StatusOK, AnomalyResponse{
		UserID:    userID,
		Anomalous: h.monitor.DetectAnomalousActivity(userID),
	})
}

// Alerts returns the unresolved alerts.
func (h *SecurityHandler) Alerts(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.ActiveAlerts())
}

// ResolveAlert marks an alert resolved by id.
func (h *SecurityHandler) ResolveAlert(c *gin.Context) {
	id := c.Param("id")
	if !h.monitor.ResolveAlert(id) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "alert not found"})
		return
	}
	c.JSON(http.StatusOK, ResolveAlertResponse{Resolved: true, AlertID: id})
}
