package alerting

import (
	"fmt"
	"time"
)

// Severity represents the severity level of an alert
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordinal position of a severity, low < medium < high < critical.
// Unknown severities rank below low so they never satisfy a severity gate.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// AtLeast reports whether s is ordinally greater than or equal to other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// ConditionOperator defines how a sample is compared against the threshold(s)
type ConditionOperator string

const (
	OpGreaterThan ConditionOperator = "greater_than"
	OpLessThan    ConditionOperator = "less_than"
	OpEquals      ConditionOperator = "equals"
	OpNotEquals   ConditionOperator = "not_equals"
	OpBetween     ConditionOperator = "between"
	OpOutside     ConditionOperator = "outside"
)

// AlertCondition defines when a rule is considered breached
type AlertCondition struct {
	Operator                ConditionOperator `json:"operator" yaml:"operator"`
	Threshold               float64           `json:"threshold" yaml:"threshold"`
	ThresholdMax            *float64          `json:"threshold_max,omitempty" yaml:"threshold_max,omitempty"`
	DurationMinutes         int               `json:"duration_minutes" yaml:"duration_minutes"`
	EvaluationWindowMinutes int               `json:"evaluation_window_minutes" yaml:"evaluation_window_minutes"`
}

// Validate checks internal consistency of the condition. A duration longer
// than the fetched window could never be fully satisfied.
func (c AlertCondition) Validate() error {
	switch c.Operator {
	case OpGreaterThan, OpLessThan, OpEquals, OpNotEquals:
	case OpBetween, OpOutside:
		if c.ThresholdMax == nil {
			return fmt.Errorf("operator %s requires threshold_max", c.Operator)
		}
		if *c.ThresholdMax < c.Threshold {
			return fmt.Errorf("threshold_max %.2f is below threshold %.2f", *c.ThresholdMax, c.Threshold)
		}
	default:
		return fmt.Errorf("unknown operator: %s", c.Operator)
	}
	if c.DurationMinutes <= 0 {
		return fmt.Errorf("duration_minutes must be positive")
	}
	if c.EvaluationWindowMinutes < c.DurationMinutes {
		return fmt.Errorf("evaluation_window_minutes %d is shorter than duration_minutes %d",
			c.EvaluationWindowMinutes, c.DurationMinutes)
	}
	return nil
}

// AlertRule identifies a monitored invariant over a metric scope
type AlertRule struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	ServiceName string         `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	MetricType  string         `json:"metric_type" yaml:"metric_type"`
	Condition   AlertCondition `json:"condition" yaml:"condition"`
	Severity    Severity       `json:"severity" yaml:"severity"`
	Enabled     bool           `json:"enabled" yaml:"enabled"`
}

// AlertStatus represents the lifecycle state of an alert
type AlertStatus string

const (
	StatusActive       AlertStatus = "active"
	StatusAcknowledged AlertStatus = "acknowledged"
	StatusResolved     AlertStatus = "resolved"
	StatusDismissed    AlertStatus = "dismissed"
)

// Terminal reports whether the status permits no further transitions.
func (s AlertStatus) Terminal() bool {
	return s == StatusResolved || s == StatusDismissed
}

// SystemAlert is a persisted alert record
type SystemAlert struct {
	ID               string         `json:"id"`
	AlertType        string         `json:"alert_type"` // rule id
	Severity         Severity       `json:"severity"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	ServiceName      string         `json:"service_name,omitempty"`
	MetricType       string         `json:"metric_type,omitempty"`
	Status           AlertStatus    `json:"status"`
	AcknowledgedBy   string         `json:"acknowledged_by,omitempty"`
	AcknowledgedAt   *time.Time     `json:"acknowledged_at,omitempty"`
	ResolvedBy       string         `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time     `json:"resolved_at,omitempty"`
	Notes            string         `json:"notes,omitempty"`
	AutoResolve      bool           `json:"auto_resolve"`
	TriggerCondition AlertCondition `json:"trigger_condition"`
	CurrentValue     float64        `json:"current_value"`
	Trend            string         `json:"trend,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// ChannelType identifies a notification delivery mechanism
type ChannelType string

const (
	ChannelEmail     ChannelType = "email"
	ChannelSlack     ChannelType = "slack"
	ChannelWebhook   ChannelType = "webhook"
	ChannelSMS       ChannelType = "sms"
	ChannelPagerDuty ChannelType = "pagerduty"
	ChannelInApp     ChannelType = "in_app"
)

// ChannelFilter restricts which alerts a channel accepts
type ChannelFilter struct {
	MinSeverity Severity `json:"min_severity,omitempty" yaml:"min_severity,omitempty"`
	Services    []string `json:"services,omitempty" yaml:"services,omitempty"`
	AlertTypes  []string `json:"alert_types,omitempty" yaml:"alert_types,omitempty"`
}

// Accepts reports whether the filter allows notifications for the alert.
func (f *ChannelFilter) Accepts(alert *SystemAlert) bool {
	if f == nil {
		return true
	}
	if f.MinSeverity != "" && !alert.Severity.AtLeast(f.MinSeverity) {
		return false
	}
	if len(f.Services) > 0 && !contains(f.Services, alert.ServiceName) {
		return false
	}
	if len(f.AlertTypes) > 0 && !contains(f.AlertTypes, alert.AlertType) {
		return false
	}
	return true
}

// NotificationChannel is one delivery target within an escalation level
type NotificationChannel struct {
	Type    ChannelType       `json:"type" yaml:"type"`
	Enabled bool              `json:"enabled" yaml:"enabled"`
	Config  map[string]string `json:"config,omitempty" yaml:"config,omitempty"`
	Filter  *ChannelFilter    `json:"filter,omitempty" yaml:"filter,omitempty"`
}

// EscalationConditionType gates execution of an escalation level
type EscalationConditionType string

const (
	IfNotAcknowledged EscalationConditionType = "if_not_acknowledged"
	IfNotResolved     EscalationConditionType = "if_not_resolved"
	IfSeverityAtLeast EscalationConditionType = "if_severity_at_least"
)

// EscalationCondition is a single gate; Severity is set for if_severity_at_least.
type EscalationCondition struct {
	Type     EscalationConditionType `json:"type" yaml:"type"`
	Severity Severity                `json:"severity,omitempty" yaml:"severity,omitempty"`
}

// Holds reports whether the gate passes for the alert's current state.
func (c EscalationCondition) Holds(alert *SystemAlert) bool {
	switch c.Type {
	case IfNotAcknowledged:
		return alert.Status != StatusAcknowledged
	case IfNotResolved:
		return alert.Status != StatusResolved
	case IfSeverityAtLeast:
		return alert.Severity.AtLeast(c.Severity)
	default:
		return false
	}
}

// EscalationLevel is one step of an escalation policy
type EscalationLevel struct {
	Level        int                   `json:"level" yaml:"level"`
	DelayMinutes int                   `json:"delay_minutes" yaml:"delay_minutes"`
	Channels     []NotificationChannel `json:"channels" yaml:"channels"`
	Recipients   []string              `json:"recipients" yaml:"recipients"`
	Conditions   []EscalationCondition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// EscalationPolicy is an ordered sequence of levels applied to matching alerts
type EscalationPolicy struct {
	ID         string            `json:"id" yaml:"id"`
	Name       string            `json:"name" yaml:"name"`
	Levels     []EscalationLevel `json:"levels" yaml:"levels"`
	Enabled    bool              `json:"enabled" yaml:"enabled"`
	Severities []Severity        `json:"severities,omitempty" yaml:"severities,omitempty"`
	Services   []string          `json:"services,omitempty" yaml:"services,omitempty"`
	AlertTypes []string          `json:"alert_types,omitempty" yaml:"alert_types,omitempty"`
}

// Matches reports whether the policy's applicability filter accepts the alert.
// Empty filter dimensions match everything.
func (p *EscalationPolicy) Matches(alert *SystemAlert) bool {
	if len(p.Severities) > 0 {
		found := false
		for _, s := range p.Severities {
			if s == alert.Severity {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(p.Services) > 0 && !contains(p.Services, alert.ServiceName) {
		return false
	}
	if len(p.AlertTypes) > 0 && !contains(p.AlertTypes, alert.AlertType) {
		return false
	}
	return true
}

// NotificationRecord is one entry in an incident's append-only dispatch log
type NotificationRecord struct {
	Channel    ChannelType `json:"channel"`
	Recipients []string    `json:"recipients"`
	Level      int         `json:"level"`
	Timestamp  time.Time   `json:"timestamp"`
	Success    bool        `json:"success"`
	Error      string      `json:"error,omitempty"`
}

// IncidentContext tracks one (alert, policy) pair's escalation progress
type IncidentContext struct {
	IncidentID        string               `json:"incident_id"`
	AlertID           string               `json:"alert_id"`
	PolicyID          string               `json:"policy_id"`
	Level             int                  `json:"escalation_level"`
	NextEscalationAt  time.Time            `json:"next_escalation_at"`
	NotificationsSent []NotificationRecord `json:"notifications_sent"`
	CreatedAt         time.Time            `json:"created_at"`
}

// MetricSample is a single time-stamped measurement
type MetricSample struct {
	ServiceName string    `json:"service_name"`
	MetricType  string    `json:"metric_type"`
	Value       float64   `json:"metric_value"`
	Unit        string    `json:"unit,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
