package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/pulseboard/pulse-backend-go/internal/config"
	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
	"github.com/pulseboard/pulse-backend-go/internal/database/sqlite"
	"github.com/pulseboard/pulse-backend-go/internal/websocket"
)

const handlerTestSchema = `
CREATE TABLE system_alerts (
    id TEXT PRIMARY KEY,
    alert_type TEXT NOT NULL,
    severity TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    service_name TEXT NOT NULL DEFAULT '',
    metric_type TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'active',
    acknowledged_by TEXT NOT NULL DEFAULT '',
    acknowledged_at TIMESTAMP,
    resolved_by TEXT NOT NULL DEFAULT '',
    resolved_at TIMESTAMP,
    notes TEXT NOT NULL DEFAULT '',
    auto_resolve INTEGER NOT NULL DEFAULT 0,
    trigger_condition TEXT NOT NULL DEFAULT '{}',
    current_value REAL NOT NULL DEFAULT 0,
    trend TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX idx_alerts_active_type
    ON system_alerts(alert_type) WHERE status = 'active';
CREATE TABLE metric_samples (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    service_name TEXT NOT NULL DEFAULT '',
    metric_type TEXT NOT NULL,
    metric_value REAL NOT NULL,
    unit TEXT NOT NULL DEFAULT '',
    timestamp TIMESTAMP NOT NULL
);
`

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(ctx context.Context, alert *alerting.SystemAlert, channel alerting.NotificationChannel, recipients []string) error {
	return nil
}

func setupHandlers(t *testing.T) (*Handlers, *sqlx.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(handlerTestSchema)
	require.NoError(t, err)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	engine := alerting.NewEngine(
		sqlite.NewAlertRepository(db),
		sqlite.NewMetricRepository(db),
		noopDispatcher{},
		log,
		prometheus.NewRegistry(),
	)
	hub := websocket.NewHub(log)

	cfg := &config.Config{}
	return NewHandlers(cfg, engine, db, hub, log), db
}

func doRequest(t *testing.T, handler gin.HandlerFunc, method, path string, params gin.Params, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	handler(c)
	return w
}

func TestCreateAndListRules(t *testing.T) {
	h, _ := setupHandlers(t)

	rule := map[string]interface{}{
		"name":        "High Response Time",
		"metric_type": "response_time",
		"severity":    "high",
		"enabled":     true,
		"condition": map[string]interface{}{
			"operator":                  "greater_than",
			"threshold":                 2000,
			"duration_minutes":          2,
			"evaluation_window_minutes": 5,
		},
	}

	w := doRequest(t, h.CreateRule, http.MethodPost, "/api/v1/rules", nil, rule)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, h.ListRules, http.MethodGet, "/api/v1/rules", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                 `json:"success"`
		Data    []alerting.AlertRule `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	assert.NotEmpty(t, resp.Data[0].ID)
}

func TestCreateRuleRejectsInvalidCondition(t *testing.T) {
	h, _ := setupHandlers(t)

	rule := map[string]interface{}{
		"name":        "Broken",
		"metric_type": "cpu_usage",
		"condition": map[string]interface{}{
			"operator":                  "greater_than",
			"threshold":                 80,
			"duration_minutes":          10,
			"evaluation_window_minutes": 5,
		},
	}

	w := doRequest(t, h.CreateRule, http.MethodPost, "/api/v1/rules", nil, rule)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAcknowledgeUnknownAlertReturns404(t *testing.T) {
	h, _ := setupHandlers(t)

	w := doRequest(t, h.AcknowledgeAlert, http.MethodPost, "/api/v1/alerts/ghost/acknowledge",
		gin.Params{{Key: "id", Value: "ghost"}}, map[string]string{"user": "alice"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAcknowledgeRequiresUser(t *testing.T) {
	h, _ := setupHandlers(t)

	w := doRequest(t, h.AcknowledgeAlert, http.MethodPost, "/api/v1/alerts/a1/acknowledge",
		gin.Params{{Key: "id", Value: "a1"}}, map[string]string{"notes": "no user"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAlertStatsRejectsUnknownRange(t *testing.T) {
	h, _ := setupHandlers(t)

	w := doRequest(t, h.GetAlertStats, http.MethodGet, "/api/v1/alerts/stats?range=fortnight", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, h.GetAlertStats, http.MethodGet, "/api/v1/alerts/stats?range=week", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEngineStatusEndpoint(t *testing.T) {
	h, _ := setupHandlers(t)

	w := doRequest(t, h.GetEngineStatus, http.MethodGet, "/api/v1/engine/status", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Engine alerting.EngineStatus `json:"engine"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.False(t, resp.Data.Engine.Running)
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := setupHandlers(t)

	w := doRequest(t, h.Health, http.MethodGet, "/api/v1/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
