package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
)

const testSchema = `
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

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	return db
}

func newTestAlert(id, alertType string, status alerting.AlertStatus) *alerting.SystemAlert {
	now := time.Now().UTC().Truncate(time.Second)
	return &alerting.SystemAlert{
		ID:          id,
		AlertType:   alertType,
		Severity:    alerting.SeverityHigh,
		Title:       "High Response Time",
		Description: "response_time above threshold",
		ServiceName: "checkout",
		MetricType:  "response_time",
		Status:      status,
		AutoResolve: true,
		TriggerCondition: alerting.AlertCondition{
			Operator:                alerting.OpGreaterThan,
			Threshold:               2000,
			DurationMinutes:         2,
			EvaluationWindowMinutes: 5,
		},
		CurrentValue: 2400,
		Trend:        "rising",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestAlertRepositoryInsertAndGet(t *testing.T) {
	repo := NewAlertRepository(setupTestDB(t))
	ctx := context.Background()

	alert := newTestAlert("a1", "high_response_time", alerting.StatusActive)
	require.NoError(t, repo.Insert(ctx, alert))

	got, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, alert.AlertType, got.AlertType)
	assert.Equal(t, alerting.SeverityHigh, got.Severity)
	assert.Equal(t, alerting.StatusActive, got.Status)
	assert.True(t, got.AutoResolve)
	assert.Equal(t, alerting.OpGreaterThan, got.TriggerCondition.Operator)
	assert.Equal(t, 2000.0, got.TriggerCondition.Threshold)
}

func TestAlertRepositoryDuplicateActive(t *testing.T) {
	repo := NewAlertRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, newTestAlert("a1", "high_response_time", alerting.StatusActive)))

	err := repo.Insert(ctx, newTestAlert("a2", "high_response_time", alerting.StatusActive))
	require.ErrorIs(t, err, alerting.ErrDuplicateActiveAlert)

	// A second alert for the same rule is allowed once the first is closed.
	first, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	now := time.Now().UTC()
	first.Status = alerting.StatusResolved
	first.ResolvedBy = "system"
	first.ResolvedAt = &now
	require.NoError(t, repo.Update(ctx, first))

	require.NoError(t, repo.Insert(ctx, newTestAlert("a3", "high_response_time", alerting.StatusActive)))
}

func TestAlertRepositoryGetActiveByType(t *testing.T) {
	repo := NewAlertRepository(setupTestDB(t))
	ctx := context.Background()

	got, err := repo.GetActiveByType(ctx, "high_response_time")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Insert(ctx, newTestAlert("a1", "high_response_time", alerting.StatusActive)))

	got, err = repo.GetActiveByType(ctx, "high_response_time")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a1", got.ID)
}

func TestAlertRepositoryUpdateLifecycle(t *testing.T) {
	repo := NewAlertRepository(setupTestDB(t))
	ctx := context.Background()

	alert := newTestAlert("a1", "high_cpu_usage", alerting.StatusActive)
	require.NoError(t, repo.Insert(ctx, alert))

	now := time.Now().UTC().Truncate(time.Second)
	alert.Status = alerting.StatusAcknowledged
	alert.AcknowledgedBy = "alice"
	alert.AcknowledgedAt = &now
	alert.Notes = "looking into it"
	require.NoError(t, repo.Update(ctx, alert))

	got, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, alerting.StatusAcknowledged, got.Status)
	assert.Equal(t, "alice", got.AcknowledgedBy)
	require.NotNil(t, got.AcknowledgedAt)
	assert.Equal(t, "looking into it", got.Notes)
}

func TestAlertRepositoryUpdateMissing(t *testing.T) {
	repo := NewAlertRepository(setupTestDB(t))

	err := repo.Update(context.Background(), newTestAlert("ghost", "x", alerting.StatusActive))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAlertRepositoryGetByStatus(t *testing.T) {
	repo := NewAlertRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, newTestAlert("a1", "rule_a", alerting.StatusActive)))
	require.NoError(t, repo.Insert(ctx, newTestAlert("a2", "rule_b", alerting.StatusActive)))
	require.NoError(t, repo.Insert(ctx, newTestAlert("a3", "rule_c", alerting.StatusResolved)))

	active, err := repo.GetByStatus(ctx, alerting.StatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	resolved, err := repo.GetByStatus(ctx, alerting.StatusResolved)
	require.NoError(t, err)
	assert.Len(t, resolved, 1)
}

func TestAlertRepositoryDeleteClosedBefore(t *testing.T) {
	repo := NewAlertRepository(setupTestDB(t))
	ctx := context.Background()

	old := newTestAlert("a1", "rule_a", alerting.StatusResolved)
	old.CreatedAt = time.Now().UTC().Add(-10 * 24 * time.Hour)
	require.NoError(t, repo.Insert(ctx, old))

	// Active alerts are never pruned regardless of age.
	oldActive := newTestAlert("a2", "rule_b", alerting.StatusActive)
	oldActive.CreatedAt = time.Now().UTC().Add(-10 * 24 * time.Hour)
	require.NoError(t, repo.Insert(ctx, oldActive))

	require.NoError(t, repo.Insert(ctx, newTestAlert("a3", "rule_c", alerting.StatusDismissed)))

	pruned, err := repo.DeleteClosedBefore(ctx, time.Now().UTC().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	_, err = repo.GetByID(ctx, "a2")
	assert.NoError(t, err)
	_, err = repo.GetByID(ctx, "a3")
	assert.NoError(t, err)
}
