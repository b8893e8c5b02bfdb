package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
)

// ListPolicies returns all registered escalation policies.
func (h *Handlers) ListPolicies(c *gin.Context) {
	respondSuccess(c, http.StatusOK, h.engine.GetEscalationPolicies())
}

// CreatePolicy registers a new escalation policy.
func (h *Handlers) CreatePolicy(c *gin.Context) {
	var policy alerting.EscalationPolicy
	if err := c.ShouldBindJSON(&policy); err != nil {
		respondError(c, http.StatusBadRequest, "invalid policy payload: "+err.Error())
		return
	}
	if policy.Name == "" {
		respondError(c, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.engine.AddEscalationPolicy(&policy); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondSuccess(c, http.StatusCreated, policy)
}

// DeletePolicy deregisters an escalation policy and drops its incidents.
func (h *Handlers) DeletePolicy(c *gin.Context) {
	id := c.Param("id")
	if err := h.engine.RemoveEscalationPolicy(id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			respondError(c, http.StatusNotFound, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}
