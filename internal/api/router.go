package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/pulseboard/pulse-backend-go/internal/api/handlers"
	"github.com/pulseboard/pulse-backend-go/internal/api/middleware"
	"github.com/pulseboard/pulse-backend-go/internal/config"
	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
	"github.com/pulseboard/pulse-backend-go/internal/websocket"
)

// NewRouter creates and configures the main HTTP router
func NewRouter(cfg *config.Config, engine *alerting.Engine, db *sqlx.DB, logger *logrus.Logger, wsHub *websocket.Hub) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	if cfg.Security.EnableCORS {
		router.Use(middleware.CORSMiddleware(cfg.Security.AllowedOrigins))
	}

	h := handlers.NewHandlers(cfg, engine, db, wsHub, logger)

	router.GET("/ws", websocket.HandleWebSocketGin(wsHub))

	api := router.Group("/api/v1")
	{
		api.GET("/health", h.Health)
		api.GET("/metrics", gin.WrapH(promhttp.Handler()))

		alerts := api.Group("/alerts")
		{
			alerts.GET("/active", h.GetActiveAlerts)
			alerts.GET("/stats", h.GetAlertStats)
			alerts.POST("/:id/acknowledge", h.AcknowledgeAlert)
			alerts.POST("/:id/resolve", h.ResolveAlert)
			alerts.POST("/:id/dismiss", h.DismissAlert)
		}

		rules := api.Group("/rules")
		{
			rules.GET("", h.ListRules)
			rules.POST("", h.CreateRule)
			rules.DELETE("/:id", h.DeleteRule)
		}

		policies := api.Group("/policies")
		{
			policies.GET("", h.ListPolicies)
			policies.POST("", h.CreatePolicy)
			policies.DELETE("/:id", h.DeletePolicy)
		}

		engineGroup := api.Group("/engine")
		{
			engineGroup.GET("/status", h.GetEngineStatus)
			engineGroup.POST("/start", h.StartEngine)
			engineGroup.POST("/stop", h.StopEngine)
		}
	}

	return router
}
