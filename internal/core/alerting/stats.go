package alerting

import (
	"context"
	"fmt"
	"time"
)

// AlertStatistics summarizes alert activity over a trailing time range.
type AlertStatistics struct {
	Range                string              `json:"range"`
	Since                time.Time           `json:"since"`
	Until                time.Time           `json:"until"`
	Total                int                 `json:"total"`
	BySeverity           map[Severity]int    `json:"by_severity"`
	ByStatus             map[AlertStatus]int `json:"by_status"`
	ResolutionRate       float64             `json:"resolution_rate"`
	AvgResolutionSeconds float64             `json:"avg_resolution_seconds"`
}

// GetAlertStatistics computes alert statistics over a named trailing range:
// hour, day, week or month.
func (e *Engine) GetAlertStatistics(ctx context.Context, rng string) (*AlertStatistics, error) {
	var span time.Duration
	switch rng {
	case "hour":
		span = time.Hour
	case "day":
		span = 24 * time.Hour
	case "week":
		span = 7 * 24 * time.Hour
	case "month":
		span = 30 * 24 * time.Hour
	default:
		return nil, fmt.Errorf("unknown statistics range: %q", rng)
	}

	now := e.clock.Now()
	since := now.Add(-span)

	alerts, err := e.store.GetInRange(ctx, since, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}

	stats := &AlertStatistics{
		Range:      rng,
		Since:      since,
		Until:      now,
		Total:      len(alerts),
		BySeverity: make(map[Severity]int),
		ByStatus:   make(map[AlertStatus]int),
	}

	resolved := 0
	var totalResolution time.Duration
	for _, alert := range alerts {
		stats.BySeverity[alert.Severity]++
		stats.ByStatus[alert.Status]++
		if alert.Status == StatusResolved && alert.ResolvedAt != nil {
			resolved++
			totalResolution += alert.ResolvedAt.Sub(alert.CreatedAt)
		}
	}

	if stats.Total > 0 {
		stats.ResolutionRate = float64(resolved) / float64(stats.Total)
	}
	if resolved > 0 {
		stats.AvgResolutionSeconds = (totalResolution / time.Duration(resolved)).Seconds()
	}
	return stats, nil
}
