package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
)

// AlertRow is the database representation of a SystemAlert. The trigger
// condition is stored as a JSON blob.
type AlertRow struct {
	ID               string       `db:"id"`
	AlertType        string       `db:"alert_type"`
	Severity         string       `db:"severity"`
	Title            string       `db:"title"`
	Description      string       `db:"description"`
	ServiceName      string       `db:"service_name"`
	MetricType       string       `db:"metric_type"`
	Status           string       `db:"status"`
	AcknowledgedBy   string       `db:"acknowledged_by"`
	AcknowledgedAt   sql.NullTime `db:"acknowledged_at"`
	ResolvedBy       string       `db:"resolved_by"`
	ResolvedAt       sql.NullTime `db:"resolved_at"`
	Notes            string       `db:"notes"`
	AutoResolve      bool         `db:"auto_resolve"`
	TriggerCondition string       `db:"trigger_condition"`
	CurrentValue     float64      `db:"current_value"`
	Trend            string       `db:"trend"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"`
}

// FromAlert converts a domain alert into its row representation.
func FromAlert(alert *alerting.SystemAlert) (*AlertRow, error) {
	cond, err := json.Marshal(alert.TriggerCondition)
	if err != nil {
		return nil, err
	}
	row := &AlertRow{
		ID:               alert.ID,
		AlertType:        alert.AlertType,
		Severity:         string(alert.Severity),
		Title:            alert.Title,
		Description:      alert.Description,
		ServiceName:      alert.ServiceName,
		MetricType:       alert.MetricType,
		Status:           string(alert.Status),
		AcknowledgedBy:   alert.AcknowledgedBy,
		ResolvedBy:       alert.ResolvedBy,
		Notes:            alert.Notes,
		AutoResolve:      alert.AutoResolve,
		TriggerCondition: string(cond),
		CurrentValue:     alert.CurrentValue,
		Trend:            alert.Trend,
		CreatedAt:        alert.CreatedAt,
		UpdatedAt:        alert.UpdatedAt,
	}
	if alert.AcknowledgedAt != nil {
		row.AcknowledgedAt = sql.NullTime{Time: *alert.AcknowledgedAt, Valid: true}
	}
	if alert.ResolvedAt != nil {
		row.ResolvedAt = sql.NullTime{Time: *alert.ResolvedAt, Valid: true}
	}
	return row, nil
}

// ToAlert converts a row back into a domain alert.
func (r *AlertRow) ToAlert() (*alerting.SystemAlert, error) {
	alert := &alerting.SystemAlert{
		ID:             r.ID,
		AlertType:      r.AlertType,
		Severity:       alerting.Severity(r.Severity),
		Title:          r.Title,
		Description:    r.Description,
		ServiceName:    r.ServiceName,
		MetricType:     r.MetricType,
		Status:         alerting.AlertStatus(r.Status),
		AcknowledgedBy: r.AcknowledgedBy,
		ResolvedBy:     r.ResolvedBy,
		Notes:          r.Notes,
		AutoResolve:    r.AutoResolve,
		CurrentValue:   r.CurrentValue,
		Trend:          r.Trend,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.TriggerCondition != "" {
		if err := json.Unmarshal([]byte(r.TriggerCondition), &alert.TriggerCondition); err != nil {
			return nil, err
		}
	}
	if r.AcknowledgedAt.Valid {
		t := r.AcknowledgedAt.Time
		alert.AcknowledgedAt = &t
	}
	if r.ResolvedAt.Valid {
		t := r.ResolvedAt.Time
		alert.ResolvedAt = &t
	}
	return alert, nil
}

// SampleRow is the database representation of a MetricSample.
type SampleRow struct {
	ID          int64     `db:"id"`
	ServiceName string    `db:"service_name"`
	MetricType  string    `db:"metric_type"`
	MetricValue float64   `db:"metric_value"`
	Unit        string    `db:"unit"`
	Timestamp   time.Time `db:"timestamp"`
}

// ToSample converts a row into a domain sample.
func (r *SampleRow) ToSample() alerting.MetricSample {
	return alerting.MetricSample{
		ServiceName: r.ServiceName,
		MetricType:  r.MetricType,
		Value:       r.MetricValue,
		Unit:        r.Unit,
		Timestamp:   r.Timestamp,
	}
}
