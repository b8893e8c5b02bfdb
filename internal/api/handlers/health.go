package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health reports service liveness, database connectivity and engine state.
func (h *Handlers) Health(c *gin.Context) {
	dbStatus := "healthy"
	status := http.StatusOK
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		dbStatus = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":    dbStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  dbStatus,
		"engine":    h.engine.GetStatus(),
		"websocket": h.hub.GetStats(),
	})
}
