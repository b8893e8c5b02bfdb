package sqlite

import (
	"context"
	"time"
)

// Retention combines the pruning operations of the alert and metric
// repositories behind the janitor's single interface.
type Retention struct {
	alerts  *AlertRepository
	metrics *MetricRepository
}

// NewRetention creates a retention adapter over both repositories.
func NewRetention(alerts *AlertRepository, metrics *MetricRepository) *Retention {
	return &Retention{alerts: alerts, metrics: metrics}
}

func (r *Retention) DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.alerts.DeleteClosedBefore(ctx, cutoff)
}

func (r *Retention) DeleteSamplesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.metrics.DeleteSamplesBefore(ctx, cutoff)
}
