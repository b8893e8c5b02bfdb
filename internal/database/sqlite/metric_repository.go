package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
	"github.com/pulseboard/pulse-backend-go/internal/database/models"
)

// MetricRepository persists raw metric samples and serves evaluation windows.
type MetricRepository struct {
	db *sqlx.DB
}

// NewMetricRepository creates a new metric repository.
func NewMetricRepository(db *sqlx.DB) *MetricRepository {
	return &MetricRepository{db: db}
}

// Insert stores a single sample.
func (r *MetricRepository) Insert(ctx context.Context, sample alerting.MetricSample) error {
	query := `
		INSERT INTO metric_samples (service_name, metric_type, metric_value, unit, timestamp)
		VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		sample.ServiceName, sample.MetricType, sample.Value, sample.Unit, sample.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}
	return nil
}

// GetSamples returns samples for a scope within [from, to], oldest first.
// An empty serviceName matches samples from any service.
func (r *MetricRepository) GetSamples(ctx context.Context, serviceName, metricType string, from, to time.Time) ([]alerting.MetricSample, error) {
	var rows []models.SampleRow

	query := `
		SELECT id, service_name, metric_type, metric_value, unit, timestamp
		FROM metric_samples
		WHERE metric_type = ? AND timestamp >= ? AND timestamp <= ?`
	args := []interface{}{metricType, from, to}
	if serviceName != "" {
		query += ` AND service_name = ?`
		args = append(args, serviceName)
	}
	query += ` ORDER BY timestamp ASC`

	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch samples: %w", err)
	}

	samples := make([]alerting.MetricSample, 0, len(rows))
	for i := range rows {
		samples = append(samples, rows[i].ToSample())
	}
	return samples, nil
}

// DeleteSamplesBefore prunes samples older than cutoff.
func (r *MetricRepository) DeleteSamplesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM metric_samples WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune samples: %w", err)
	}
	return result.RowsAffected()
}
