package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/pulseboard/pulse-backend-go/internal/config"
	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
	"github.com/pulseboard/pulse-backend-go/internal/websocket"
	apperrors "github.com/pulseboard/pulse-backend-go/pkg/errors"
)

// Handlers holds the dependencies shared by all HTTP handlers.
type Handlers struct {
	cfg    *config.Config
	engine *alerting.Engine
	db     *sqlx.DB
	hub    *websocket.Hub
	logger *logrus.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(cfg *config.Config, engine *alerting.Engine, db *sqlx.DB, hub *websocket.Hub, logger *logrus.Logger) *Handlers {
	return &Handlers{
		cfg:    cfg,
		engine: engine,
		db:     db,
		hub:    hub,
		logger: logger,
	}
}

func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}

func respondAppError(c *gin.Context, err *apperrors.AppError) {
	c.JSON(err.Code, gin.H{
		"success": false,
		"error":   err.Message,
		"details": err.Details,
	})
}
