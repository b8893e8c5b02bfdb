package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// seedIncidents creates an incident at level 0 for every enabled policy whose
// applicability filter matches the alert, and executes level 0 immediately.
func (e *Engine) seedIncidents(ctx context.Context, alert *SystemAlert) {
	e.mu.RLock()
	matching := make([]*EscalationPolicy, 0, len(e.policies))
	for _, policy := range e.policies {
		if policy.Enabled && policy.Matches(alert) {
			matching = append(matching, policy)
		}
	}
	e.mu.RUnlock()

	for _, policy := range matching {
		inc := &IncidentContext{
			IncidentID: uuid.New().String(),
			AlertID:    alert.ID,
			PolicyID:   policy.ID,
			Level:      0,
			CreatedAt:  e.clock.Now(),
		}

		e.mu.Lock()
		e.incidents[inc.IncidentID] = inc
		e.metrics.activeIncidents.Set(float64(len(e.incidents)))
		e.mu.Unlock()

		e.logger.WithFields(logrus.Fields{
			"incident_id": inc.IncidentID,
			"alert_id":    alert.ID,
			"policy_id":   policy.ID,
		}).Info("Escalation started")

		// Level 0 fires immediately; its delay is 0 by convention.
		e.executeLevel(ctx, inc, policy, alert)
	}
}

// processEscalations runs one escalation pass, advancing every incident whose
// next-due timestamp has elapsed. Per-incident failures are logged and the
// incident is retried on the next tick.
func (e *Engine) processEscalations(ctx context.Context) {
	now := e.clock.Now()

	e.mu.RLock()
	due := make([]*IncidentContext, 0, len(e.incidents))
	for _, inc := range e.incidents {
		if !inc.NextEscalationAt.IsZero() && !now.Before(inc.NextEscalationAt) {
			due = append(due, inc)
		}
	}
	e.mu.RUnlock()

	for _, inc := range due {
		if err := e.advanceIncident(ctx, inc); err != nil {
			e.logger.WithError(err).WithFields(logrus.Fields{
				"incident_id": inc.IncidentID,
				"alert_id":    inc.AlertID,
			}).Error("Escalation advance failed")
		}
	}
}

func (e *Engine) advanceIncident(ctx context.Context, inc *IncidentContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("escalation advance panicked: %v", r)
		}
	}()

	e.mu.RLock()
	policy := e.policies[inc.PolicyID]
	e.mu.RUnlock()
	if policy == nil || !policy.Enabled {
		e.dropIncident(inc.IncidentID, "policy removed or disabled")
		return nil
	}

	// The store is authoritative for status so acknowledge/resolve calls from
	// outside the loops take effect on the very next pass.
	alert, err := e.store.GetByID(ctx, inc.AlertID)
	if err != nil {
		return fmt.Errorf("failed to fetch alert %s: %w", inc.AlertID, err)
	}
	if alert.Status != StatusActive {
		e.dropIncident(inc.IncidentID, "alert no longer active")
		return nil
	}

	next := inc.Level + 1
	if next >= len(policy.Levels) {
		e.dropIncident(inc.IncidentID, "levels exhausted")
		return nil
	}

	e.mu.Lock()
	inc.Level = next
	inc.NextEscalationAt = time.Time{}
	e.mu.Unlock()

	e.executeLevel(ctx, inc, policy, alert)
	return nil
}

// executeLevel evaluates the level's gating conditions, dispatches through
// every enabled channel, and schedules the next level if one exists. A failed
// gate skips the level entirely and removes the incident from tracking.
func (e *Engine) executeLevel(ctx context.Context, inc *IncidentContext, policy *EscalationPolicy, alert *SystemAlert) {
	level := policy.Levels[inc.Level]

	for _, cond := range level.Conditions {
		if !cond.Holds(alert) {
			e.logger.WithFields(logrus.Fields{
				"incident_id": inc.IncidentID,
				"alert_id":    alert.ID,
				"level":       level.Level,
				"condition":   cond.Type,
			}).Debug("Escalation level skipped, gating condition failed")
			e.dropIncident(inc.IncidentID, "gating condition failed")
			return
		}
	}

	for _, channel := range level.Channels {
		if !channel.Enabled {
			continue
		}
		if !channel.Filter.Accepts(alert) {
			continue
		}

		record := NotificationRecord{
			Channel:    channel.Type,
			Recipients: level.Recipients,
			Level:      level.Level,
			Timestamp:  e.clock.Now(),
		}

		if err := e.dispatcher.Dispatch(ctx, alert, channel, level.Recipients); err != nil {
			record.Error = err.Error()
			e.metrics.notificationsFailed.WithLabelValues(string(channel.Type)).Inc()
			e.logger.WithError(err).WithFields(logrus.Fields{
				"incident_id": inc.IncidentID,
				"channel":     channel.Type,
				"level":       level.Level,
			}).Warn("Notification dispatch failed")
		} else {
			record.Success = true
			e.metrics.notificationsSent.WithLabelValues(string(channel.Type)).Inc()
		}

		e.mu.Lock()
		inc.NotificationsSent = append(inc.NotificationsSent, record)
		e.mu.Unlock()
	}

	e.metrics.escalationsExecuted.Inc()

	if inc.Level+1 < len(policy.Levels) {
		delay := time.Duration(policy.Levels[inc.Level+1].DelayMinutes) * time.Minute
		e.mu.Lock()
		inc.NextEscalationAt = e.clock.Now().Add(delay)
		e.mu.Unlock()
	} else {
		e.dropIncident(inc.IncidentID, "levels exhausted")
	}
}

// recoverIncidents re-seeds escalation for alerts that are still active, used
// at startup since incident state is held in memory only.
func (e *Engine) recoverIncidents(ctx context.Context) error {
	active, err := e.store.GetByStatus(ctx, StatusActive)
	if err != nil {
		return fmt.Errorf("failed to list active alerts: %w", err)
	}

	for _, alert := range active {
		e.mu.RLock()
		tracked := false
		for _, inc := range e.incidents {
			if inc.AlertID == alert.ID {
				tracked = true
				break
			}
		}
		e.mu.RUnlock()
		if tracked {
			continue
		}

		e.logger.WithField("alert_id", alert.ID).Info("Re-seeding escalation for active alert")
		e.seedIncidents(ctx, alert)
	}
	return nil
}

func (e *Engine) dropIncidentsForAlert(alertID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, inc := range e.incidents {
		if inc.AlertID == alertID {
			delete(e.incidents, id)
		}
	}
	e.metrics.activeIncidents.Set(float64(len(e.incidents)))
}

func (e *Engine) dropIncident(id, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.incidents[id]; !ok {
		return
	}
	delete(e.incidents, id)
	e.metrics.activeIncidents.Set(float64(len(e.incidents)))
	e.logger.WithFields(logrus.Fields{
		"incident_id": id,
		"reason":      reason,
	}).Debug("Incident dropped from tracking")
}

// GetIncidents returns a snapshot of currently tracked incidents.
func (e *Engine) GetIncidents() []*IncidentContext {
	e.mu.RLock()
	defer e.mu.RUnlock()

	incidents := make([]*IncidentContext, 0, len(e.incidents))
	for _, inc := range e.incidents {
		copied := *inc
		copied.NotificationsSent = append([]NotificationRecord{}, inc.NotificationsSent...)
		incidents = append(incidents, &copied)
	}
	return incidents
}
