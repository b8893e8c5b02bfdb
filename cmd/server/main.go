package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/pulseboard/pulse-backend-go/internal/api"
	"github.com/pulseboard/pulse-backend-go/internal/config"
	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
	"github.com/pulseboard/pulse-backend-go/internal/core/collector"
	"github.com/pulseboard/pulse-backend-go/internal/core/notify"
	"github.com/pulseboard/pulse-backend-go/internal/database"
	"github.com/pulseboard/pulse-backend-go/internal/database/sqlite"
	"github.com/pulseboard/pulse-backend-go/internal/websocket"
	"github.com/pulseboard/pulse-backend-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Logging.Level)
	log.Info("Starting Pulse backend server...")

	// Initialize database and run migrations
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.Database.MigrationsPath); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}
	log.Info("Database initialized and migrations applied")

	// Repositories
	alertRepo := sqlite.NewAlertRepository(db)
	metricRepo := sqlite.NewMetricRepository(db)

	// WebSocket hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run()

	// Notification channels
	httpTimeout := config.Duration(cfg.Notifications.HTTPTimeout, 15*time.Second)
	registry := notify.NewRegistry(log)
	registry.Register(notify.NewEmailNotifier(cfg.Notifications.Email, log))
	registry.Register(notify.NewSlackNotifier(httpTimeout, log))
	registry.Register(notify.NewWebhookNotifier(httpTimeout, log))
	registry.Register(notify.NewSMSNotifier(httpTimeout, log))
	registry.Register(notify.NewPagerDutyNotifier(httpTimeout, log))
	registry.Register(notify.NewInAppNotifier(wsHub, log))

	// Alerting engine
	engine := alerting.NewEngine(alertRepo, metricRepo, registry, log, prometheus.DefaultRegisterer)
	if err := loadDefinitions(engine, cfg.Alerting.DefinitionsPath, log); err != nil {
		log.WithError(err).Fatal("Failed to load alert definitions")
	}

	// Push lifecycle events to connected dashboard clients
	engine.OnAlertCreated(func(alert *alerting.SystemAlert) {
		wsHub.BroadcastToAll(websocket.AlertMessage(websocket.MessageTypeAlertCreated, alert))
	})
	engine.OnAlertAcknowledged(func(alert *alerting.SystemAlert) {
		wsHub.BroadcastToAll(websocket.AlertMessage(websocket.MessageTypeAlertAcknowledged, alert))
	})
	engine.OnAlertResolved(func(alert *alerting.SystemAlert) {
		wsHub.BroadcastToAll(websocket.AlertMessage(websocket.MessageTypeAlertResolved, alert))
	})

	if cfg.Alerting.Enabled {
		evalInterval := config.Duration(cfg.Alerting.EvaluationInterval, 60*time.Second)
		escInterval := config.Duration(cfg.Alerting.EscalationInterval, 30*time.Second)
		if err := engine.Start(evalInterval, escInterval); err != nil {
			log.WithError(err).Fatal("Failed to start alerting engine")
		}
		defer engine.Stop()
	}

	// Retention janitor
	janitor := alerting.NewJanitor(
		sqlite.NewRetention(alertRepo, metricRepo),
		log,
		config.Duration(cfg.Alerting.Retention.AlertMaxAge, 168*time.Hour),
		config.Duration(cfg.Alerting.Retention.SampleMaxAge, 72*time.Hour),
	)
	if err := janitor.Start(cfg.Alerting.Retention.Schedule); err != nil {
		log.WithError(err).Fatal("Failed to start retention janitor")
	}
	defer janitor.Stop()

	// System metric collector
	if cfg.Collector.Enabled {
		sysCollector := collector.NewSystemCollector(
			metricRepo, log, cfg.Collector.ServiceName,
			config.Duration(cfg.Collector.Interval, 30*time.Second),
		)
		sysCollector.Start()
		defer sysCollector.Stop()
	}

	// HTTP server
	router := api.NewRouter(cfg, engine, db, log, wsHub)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	log.Info("Server exited")
}

// loadDefinitions registers rules and policies from the configured YAML file,
// falling back to the built-in defaults when no file is configured.
func loadDefinitions(engine *alerting.Engine, path string, log *logrus.Logger) error {
	if path == "" {
		for _, rule := range alerting.DefaultRules() {
			if err := engine.AddAlertRule(rule); err != nil {
				return err
			}
		}
		for _, policy := range alerting.DefaultPolicies() {
			if err := engine.AddEscalationPolicy(policy); err != nil {
				return err
			}
		}
		log.Info("Loaded built-in alert definitions")
		return nil
	}

	defs, err := alerting.LoadDefinitions(path)
	if err != nil {
		return err
	}
	for i := range defs.Rules {
		if err := engine.AddAlertRule(&defs.Rules[i]); err != nil {
			return err
		}
	}
	for i := range defs.Policies {
		if err := engine.AddEscalationPolicy(&defs.Policies[i]); err != nil {
			return err
		}
	}
	log.WithField("path", path).Info("Loaded alert definitions")
	return nil
}
