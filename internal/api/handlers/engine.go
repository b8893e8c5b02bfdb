package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pulseboard/pulse-backend-go/internal/config"
)

// GetEngineStatus returns the engine's runtime state and incident summary.
func (h *Handlers) GetEngineStatus(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{
		"engine":    h.engine.GetStatus(),
		"incidents": h.engine.GetIncidents(),
	})
}

// StartEngine starts the evaluation and escalation loops.
func (h *Handlers) StartEngine(c *gin.Context) {
	evalInterval := config.Duration(h.cfg.Alerting.EvaluationInterval, 60*time.Second)
	escInterval := config.Duration(h.cfg.Alerting.EscalationInterval, 30*time.Second)

	if err := h.engine.Start(evalInterval, escInterval); err != nil {
		respondError(c, http.StatusConflict, err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"running": true})
}

// StopEngine stops both engine loops.
func (h *Handlers) StopEngine(c *gin.Context) {
	h.engine.Stop()
	respondSuccess(c, http.StatusOK, gin.H{"running": false})
}
