package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
	"github.com/pulseboard/pulse-backend-go/internal/database/models"
)

// AlertRepository persists system alerts in SQLite. The unique partial index
// on (alert_type) WHERE status = 'active' enforces the one-active-alert-per-
// rule invariant at the storage layer.
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository creates a new alert repository.
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `id, alert_type, severity, title, description, service_name,
	metric_type, status, acknowledged_by, acknowledged_at, resolved_by,
	resolved_at, notes, auto_resolve, trigger_condition, current_value,
	trend, created_at, updated_at`

// Insert stores a new alert. A second active alert for the same rule trips
// the unique index and is reported as ErrDuplicateActiveAlert.
func (r *AlertRepository) Insert(ctx context.Context, alert *alerting.SystemAlert) error {
	row, err := models.FromAlert(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	query := `
		INSERT INTO system_alerts (` + alertColumns + `)
		VALUES (:id, :alert_type, :severity, :title, :description, :service_name,
			:metric_type, :status, :acknowledged_by, :acknowledged_at, :resolved_by,
			:resolved_at, :notes, :auto_resolve, :trigger_condition, :current_value,
			:trend, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return alerting.ErrDuplicateActiveAlert
		}
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of an alert.
func (r *AlertRepository) Update(ctx context.Context, alert *alerting.SystemAlert) error {
	row, err := models.FromAlert(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	query := `
		UPDATE system_alerts SET
			status = :status,
			acknowledged_by = :acknowledged_by,
			acknowledged_at = :acknowledged_at,
			resolved_by = :resolved_by,
			resolved_at = :resolved_at,
			notes = :notes,
			current_value = :current_value,
			trend = :trend,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("alert %s not found", alert.ID)
	}
	return nil
}

// GetByID fetches a single alert.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*alerting.SystemAlert, error) {
	var row models.AlertRow
	query := `SELECT ` + alertColumns + ` FROM system_alerts WHERE id = ?`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("alert %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch alert: %w", err)
	}
	return row.ToAlert()
}

// GetActiveByType returns the active alert for a rule, or (nil, nil) when
// none exists.
func (r *AlertRepository) GetActiveByType(ctx context.Context, alertType string) (*alerting.SystemAlert, error) {
	var row models.AlertRow
	query := `SELECT ` + alertColumns + ` FROM system_alerts WHERE alert_type = ? AND status = 'active'`
	if err := r.db.GetContext(ctx, &row, query, alertType); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch active alert: %w", err)
	}
	return row.ToAlert()
}

// GetByStatus returns all alerts with the given status, newest first.
func (r *AlertRepository) GetByStatus(ctx context.Context, status alerting.AlertStatus) ([]*alerting.SystemAlert, error) {
	var rows []models.AlertRow
	query := `SELECT ` + alertColumns + ` FROM system_alerts WHERE status = ? ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, string(status)); err != nil {
		return nil, fmt.Errorf("failed to fetch alerts by status: %w", err)
	}
	return toAlerts(rows)
}

// GetInRange returns alerts created within [from, to], newest first.
func (r *AlertRepository) GetInRange(ctx context.Context, from, to time.Time) ([]*alerting.SystemAlert, error) {
	var rows []models.AlertRow
	query := `SELECT ` + alertColumns + ` FROM system_alerts
		WHERE created_at >= ? AND created_at <= ? ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to fetch alerts in range: %w", err)
	}
	return toAlerts(rows)
}

// DeleteClosedBefore prunes resolved and dismissed alerts older than cutoff.
func (r *AlertRepository) DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM system_alerts
		WHERE status IN ('resolved', 'dismissed') AND created_at < ?`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune closed alerts: %w", err)
	}
	return result.RowsAffected()
}

func toAlerts(rows []models.AlertRow) ([]*alerting.SystemAlert, error) {
	alerts := make([]*alerting.SystemAlert, 0, len(rows))
	for i := range rows {
		alert, err := rows[i].ToAlert()
		if err != nil {
			return nil, fmt.Errorf("failed to decode alert %s: %w", rows[i].ID, err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}
