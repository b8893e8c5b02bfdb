package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/pulseboard/pulse-backend-go/pkg/errors"
)

// GetActiveAlerts returns all currently active alerts.
func (h *Handlers) GetActiveAlerts(c *gin.Context) {
	alerts, err := h.engine.GetActiveAlerts(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch active alerts")
		respondError(c, http.StatusInternalServerError, "Failed to fetch active alerts")
		return
	}
	respondSuccess(c, http.StatusOK, alerts)
}

// GetAlertStats returns aggregate alert statistics for a time range.
func (h *Handlers) GetAlertStats(c *gin.Context) {
	rng := c.DefaultQuery("range", "day")

	stats, err := h.engine.GetAlertStatistics(c.Request.Context(), rng)
	if err != nil {
		if strings.Contains(err.Error(), "unknown statistics range") {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithError(err).Error("Failed to compute alert statistics")
		respondError(c, http.StatusInternalServerError, "Failed to compute alert statistics")
		return
	}
	respondSuccess(c, http.StatusOK, stats)
}

type alertActionRequest struct {
	User  string `json:"user" binding:"required"`
	Notes string `json:"notes"`
}

// AcknowledgeAlert marks an alert as acknowledged by a user.
func (h *Handlers) AcknowledgeAlert(c *gin.Context) {
	var req alertActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "user is required")
		return
	}

	id := c.Param("id")
	if err := h.engine.AcknowledgeAlert(c.Request.Context(), id, req.User, req.Notes); err != nil {
		respondAppError(c, alertActionError(err))
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"id": id, "status": "acknowledged"})
}

// ResolveAlert marks an alert as resolved by a user.
func (h *Handlers) ResolveAlert(c *gin.Context) {
	var req alertActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "user is required")
		return
	}

	id := c.Param("id")
	if err := h.engine.ResolveAlert(c.Request.Context(), id, req.User, req.Notes); err != nil {
		respondAppError(c, alertActionError(err))
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"id": id, "status": "resolved"})
}

// DismissAlert closes an active alert without resolution.
func (h *Handlers) DismissAlert(c *gin.Context) {
	var req alertActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "user is required")
		return
	}

	id := c.Param("id")
	if err := h.engine.DismissAlert(c.Request.Context(), id, req.User); err != nil {
		respondAppError(c, alertActionError(err))
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"id": id, "status": "dismissed"})
}

// alertActionError maps lifecycle errors onto HTTP error responses.
func alertActionError(err error) *apperrors.AppError {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		return apperrors.WithDetails(apperrors.ErrNotFound, msg)
	case strings.Contains(msg, "already"), strings.Contains(msg, "only active"):
		return apperrors.WithDetails(apperrors.ErrConflict, msg)
	default:
		return apperrors.WithDetails(apperrors.ErrInternalServer, msg)
	}
}
