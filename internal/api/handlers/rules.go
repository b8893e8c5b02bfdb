package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
)

// ListRules returns all registered alert rules.
func (h *Handlers) ListRules(c *gin.Context) {
	respondSuccess(c, http.StatusOK, h.engine.GetAlertRules())
}

// CreateRule registers a new alert rule.
func (h *Handlers) CreateRule(c *gin.Context) {
	var rule alerting.AlertRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		respondError(c, http.StatusBadRequest, "invalid rule payload: "+err.Error())
		return
	}
	if rule.Name == "" || rule.MetricType == "" {
		respondError(c, http.StatusBadRequest, "name and metric_type are required")
		return
	}

	if err := h.engine.AddAlertRule(&rule); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondSuccess(c, http.StatusCreated, rule)
}

// DeleteRule deregisters an alert rule.
func (h *Handlers) DeleteRule(c *gin.Context) {
	id := c.Param("id")
	if err := h.engine.RemoveAlertRule(id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			respondError(c, http.StatusNotFound, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}
